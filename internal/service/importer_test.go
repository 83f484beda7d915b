package service

import (
	"encoding/json"
	"testing"
	"time"

	"crescer/internal/importer"
	"crescer/internal/models"
	"crescer/internal/portfolio"
	"crescer/internal/repo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const importUser = "user_1_importer1"

func newImportService(t *testing.T, pub *recordingPublisher) (*ImportService, *repo.Repository) {
	t.Helper()
	r := setupTestRepo(t)
	n, err := importer.New(
		importer.WithLogger(discardLogger),
		importer.WithLocation(time.UTC),
	)
	require.NoError(t, err)

	ledger, err := NewLedgerService(
		WithLedgerLogger(discardLogger),
		WithLedgerRepo(r),
		WithLedgerRates(&fakeRates{rates: portfolio.DefaultRates}),
		WithLedgerSpot(&fakeSpot{}),
		WithLedgerHistoric(&fakeHistoric{}),
		WithLedgerLocation(time.UTC),
	)
	require.NoError(t, err)

	opts := []ImportOption{
		WithImportLogger(discardLogger),
		WithImportRepo(r),
		WithImportLedger(ledger),
		WithImportNormalizer(n),
		WithImportRates(&fakeRates{rates: portfolio.DefaultRates}),
	}
	if pub != nil {
		opts = append(opts, WithImportPublisher(pub))
	}
	svc, err := NewImportService(opts...)
	require.NoError(t, err)
	return svc, r
}

func TestImportService_InvalidConfig(t *testing.T) {
	_, err := NewImportService(WithImportLogger(discardLogger))
	assert.ErrorIs(t, err, ErrInvalidImportConfig)
}

func TestImportService_ImportCSV(t *testing.T) {
	pub := &recordingPublisher{}
	svc, r := newImportService(t, pub)

	data := []byte("symbol,action,amount,toAmount,assetPriceUSD,timestamp\n" +
		"WBTC,Supply,0.5,,60000,1700000000\n" +
		"ETH,Supply,3.0,,2000,1700000000\n" +
		"cbBTC,CowCollateralSwap,9,0.25,64000,1700003600\n" +
		"WBTC,Borrow,1,,60000,1700000000\n")

	var messages []string
	log, err := svc.Import(testContext(t), ImportRequest{
		UserID:   importUser,
		Filename: "aave-history.csv",
		Data:     data,
	}, func(msg string) { messages = append(messages, msg) })
	require.NoError(t, err)

	assert.Equal(t, models.ImportStatusCompleted, log.Status)
	assert.Equal(t, "csv", log.Format)
	assert.Equal(t, 4, log.TotalRows)
	assert.Equal(t, 2, log.MatchedRows)
	assert.Equal(t, 2, log.ImportedRows)
	assert.Zero(t, log.FailedRows)

	assert.Contains(t, messages, "Found 4 rows in file")
	assert.Contains(t, messages, "Found 2 BTC Supply/CowCollateralSwap transactions")
	assert.Contains(t, messages, "Imported 2/2 transactions...")
	assert.Equal(t, "Successfully imported 2 BTC transactions", messages[len(messages)-1])
	assert.Equal(t, messages, log.Progress)

	txs, err := r.GetTransactions(importUser)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, int64(50_000_000), txs[0].Satoshis)
	assert.Equal(t, int64(25_000_000), txs[1].Satoshis)
	assert.InDelta(t, 16_000.0, txs[1].FiatAmount, 1e-9)

	stored, err := r.GetImportLog(importUser, log.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ImportStatusCompleted, stored.Status)
	assert.Equal(t, log.Progress, stored.Progress)

	msgs := pub.Messages()
	require.NotEmpty(t, msgs)
	var last ProgressEvent
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1], &last))
	assert.True(t, last.Done)
	assert.Equal(t, importUser, last.UserID)
	assert.Equal(t, log.ID, last.ImportID)
}

func TestImportService_ImportJSONWithExplicitFormat(t *testing.T) {
	svc, r := newImportService(t, nil)

	data := []byte(`[
		{"reserve": {"symbol": "WBTC"}, "action": "Supply", "amount": "1,000.5", "assetPriceUSD": 1, "timestamp": 1700000000},
		{"reserve": {"symbol": "WBTC"}, "action": "Supply", "amount": "abc", "assetPriceUSD": 1, "timestamp": 1700000000}
	]`)

	log, err := svc.Import(testContext(t), ImportRequest{
		UserID:   importUser,
		Filename: "upload.txt",
		Format:   "json",
		Data:     data,
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, models.ImportStatusPartial, log.Status)
	assert.Equal(t, 2, log.MatchedRows)
	assert.Equal(t, 1, log.ImportedRows)
	assert.Equal(t, 1, log.FailedRows)
	assert.Contains(t, log.FailedData, "amount")

	txs, err := r.GetTransactions(importUser)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, 1000.5, txs[0].BitcoinAmount)
}

func TestImportService_NoMatchingRows(t *testing.T) {
	svc, r := newImportService(t, nil)

	var messages []string
	log, err := svc.Import(testContext(t), ImportRequest{
		UserID:   importUser,
		Filename: "history.csv",
		Data:     []byte("symbol,action,amount,assetPriceUSD,timestamp\nETH,Supply,1,2000,1700000000\n"),
	}, func(msg string) { messages = append(messages, msg) })

	require.ErrorIs(t, err, importer.ErrNoMatchingRows)
	require.NotNil(t, log)
	assert.Equal(t, models.ImportStatusFailed, log.Status)
	assert.Equal(t, "No BTC Supply or CowCollateralSwap transactions found in file", messages[len(messages)-1])

	logs, err := r.ListImportLogs(importUser)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.ImportStatusFailed, logs[0].Status)
}

func TestImportService_UnsupportedFile(t *testing.T) {
	svc, _ := newImportService(t, nil)

	_, err := svc.Import(testContext(t), ImportRequest{
		UserID:   importUser,
		Filename: "history.xlsx",
		Data:     []byte("x"),
	}, nil)
	assert.ErrorIs(t, err, importer.ErrUnsupportedFileType)
}

func TestImportService_Logs(t *testing.T) {
	svc, _ := newImportService(t, nil)

	log, err := svc.Import(testContext(t), ImportRequest{
		UserID:   importUser,
		Filename: "history.csv",
		Data:     []byte("symbol,action,amount,assetPriceUSD,timestamp\nWBTC,Supply,1,60000,1700000000\n"),
	}, nil)
	require.NoError(t, err)

	logs, err := svc.Logs(testContext(t), importUser)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	got, err := svc.Log(testContext(t), importUser, log.ID)
	require.NoError(t, err)
	assert.Equal(t, "history.csv", got.Filename)

	_, err = svc.Log(testContext(t), "someone_else", log.ID)
	assert.ErrorIs(t, err, repo.ErrNotFound)

	require.NoError(t, svc.DeleteLog(testContext(t), importUser, log.ID))
	logs, err = svc.Logs(testContext(t), importUser)
	require.NoError(t, err)
	assert.Empty(t, logs)
}
