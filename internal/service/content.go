package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
)

var (
	ErrInvalidContentConfig = errors.New("invalid content service config")
	ErrMissingTitle         = errors.New("title is required")
)

const (
	settingTitle       = "site_title"
	settingSubtitle    = "site_subtitle"
	settingDescription = "site_description"
)

var defaultContent = SiteContent{
	Title:       "Crescer",
	Subtitle:    "Track your bitcoin stack",
	Description: "Record every **buy** and **sell**, see what your sats are worth in BRL, USD, EUR or GBP.",
}

type SettingsRepository interface {
	GetSettings(keys ...string) (map[string]string, error)
	SetSetting(key, value string) error
}

// SiteContent is the editable landing copy. Description is markdown; HTML is
// rendered from it and sanitized on every read.
type SiteContent struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Description string `json:"description"`
	HTML        string `json:"html,omitempty"`
}

type ContentService struct {
	logger   *slog.Logger
	repo     SettingsRepository
	markdown goldmark.Markdown
	strict   *bluemonday.Policy
	ugc      *bluemonday.Policy
}

type ContentOption func(*ContentService)

func WithContentLogger(l *slog.Logger) ContentOption {
	return func(s *ContentService) {
		s.logger = l
	}
}

func WithContentRepo(r SettingsRepository) ContentOption {
	return func(s *ContentService) {
		s.repo = r
	}
}

func (s *ContentService) IsValid() error {
	switch {
	case s.logger == nil:
		return errors.Wrap(ErrInvalidContentConfig, "logger cannot be nil")
	case s.repo == nil:
		return errors.Wrap(ErrInvalidContentConfig, "repo cannot be nil")
	default:
		return nil
	}
}

func NewContentService(opts ...ContentOption) (*ContentService, error) {
	s := &ContentService{
		markdown: goldmark.New(),
		strict:   bluemonday.StrictPolicy(),
		ugc:      bluemonday.UGCPolicy(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.IsValid(); err != nil {
		return nil, err
	}

	return s, nil
}

// Content returns the stored copy, falling back to defaults field by field.
func (s *ContentService) Content(_ context.Context) (SiteContent, error) {
	values, err := s.repo.GetSettings(settingTitle, settingSubtitle, settingDescription)
	if err != nil {
		return SiteContent{}, errors.Wrap(err, "failed to load content")
	}

	c := defaultContent
	if v := values[settingTitle]; v != "" {
		c.Title = v
	}
	if v := values[settingSubtitle]; v != "" {
		c.Subtitle = v
	}
	if v := values[settingDescription]; v != "" {
		c.Description = v
	}

	html, err := s.render(c.Description)
	if err != nil {
		return SiteContent{}, err
	}
	c.HTML = html
	return c, nil
}

// Update stores new copy. Title and subtitle are plain text; any markup is stripped.
func (s *ContentService) Update(ctx context.Context, in SiteContent) (SiteContent, error) {
	title := strings.TrimSpace(s.strict.Sanitize(in.Title))
	if title == "" {
		return SiteContent{}, ErrMissingTitle
	}

	updates := [][2]string{
		{settingTitle, title},
		{settingSubtitle, strings.TrimSpace(s.strict.Sanitize(in.Subtitle))},
		{settingDescription, in.Description},
	}
	for _, kv := range updates {
		if err := s.repo.SetSetting(kv[0], kv[1]); err != nil {
			return SiteContent{}, errors.Wrapf(err, "failed to save %s", kv[0])
		}
	}

	s.logger.Info("site content updated", "title", title)
	return s.Content(ctx)
}

func (s *ContentService) render(md string) (string, error) {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(md), &buf); err != nil {
		return "", errors.Wrap(err, "failed to render markdown")
	}
	return string(s.ugc.SanitizeBytes(buf.Bytes())), nil
}
