package ics

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// LineSource yields the raw lines of a calendar document.
type LineSource interface {
	Lines(ctx context.Context) ([]string, error)
}

// FileSource reads lines from a local .ics file.
type FileSource struct {
	Path string
}

func (s FileSource) Lines(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return SplitLines(string(data)), nil
}

// URLSource fetches lines from a remote feed through a caching Fetcher.
type URLSource struct {
	Fetcher *Fetcher
	Source  Source
}

func (s URLSource) Lines(ctx context.Context) ([]string, error) {
	res, err := s.Fetcher.Fetch(ctx, s.Source)
	if err != nil {
		return nil, err
	}
	return SplitLines(string(res.Body)), nil
}

// SplitLines drops carriage returns and splits text on newlines.
func SplitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r", ""), "\n")
}
