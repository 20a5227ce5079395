package store

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/syncsoftco/tickr/internal/domain"
)

// GitHub is a ContentStore over a repository's contents API. The version
// token is the blob SHA GitHub reports on read and demands on update.
type GitHub struct {
	client *github.Client
	owner  string
	repo   string
	branch string
}

var _ ContentStore = (*GitHub)(nil)

// NewGitHub builds a store for owner/repo. token may be empty for public
// read-only use; branch may be empty for the default branch.
func NewGitHub(ctx context.Context, token, owner, repo, branch string) *GitHub {
	var hc *http.Client
	if token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}
	return &GitHub{client: github.NewClient(hc), owner: owner, repo: repo, branch: branch}
}

func (s *GitHub) Read(ctx context.Context, p string) ([]byte, string, error) {
	file, _, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, p, &github.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		return nil, "", classifyGitHub(err, p)
	}
	if file == nil {
		return nil, "", fmt.Errorf("%s is a directory", p)
	}

	// The contents API omits bodies above 1 MB, reporting encoding "none";
	// fetch those as blobs.
	if file.GetEncoding() == "none" {
		raw, err := s.readBlob(ctx, file.GetSHA())
		if err != nil {
			return nil, "", fmt.Errorf("failed to read blob for %s: %w", p, err)
		}
		return raw, file.GetSHA(), nil
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode %s: %w", p, err)
	}
	return []byte(content), file.GetSHA(), nil
}

func (s *GitHub) readBlob(ctx context.Context, sha string) ([]byte, error) {
	blob, _, err := s.client.Git.GetBlob(ctx, s.owner, s.repo, sha)
	if err != nil {
		return nil, err
	}
	if blob.GetEncoding() != "base64" {
		return []byte(blob.GetContent()), nil
	}
	return base64.StdEncoding.DecodeString(strings.ReplaceAll(blob.GetContent(), "\n", ""))
}

func (s *GitHub) List(ctx context.Context, dir string) ([]Entry, error) {
	_, listing, _, err := s.client.Repositories.GetContents(ctx, s.owner, s.repo, dir, &github.RepositoryContentGetOptions{Ref: s.branch})
	if err != nil {
		return nil, classifyGitHub(err, dir)
	}
	if listing == nil {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	entries := make([]Entry, 0, len(listing))
	for _, item := range listing {
		entries = append(entries, Entry{Name: item.GetName(), IsDir: item.GetType() == "dir"})
	}
	return entries, nil
}

func (s *GitHub) Create(ctx context.Context, p, message string, content []byte) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
	}
	if s.branch != "" {
		opts.Branch = github.String(s.branch)
	}
	if _, _, err := s.client.Repositories.CreateFile(ctx, s.owner, s.repo, p, opts); err != nil {
		return classifyGitHub(err, p)
	}
	return nil
}

func (s *GitHub) Update(ctx context.Context, p, message string, content []byte, version string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		SHA:     github.String(version),
	}
	if s.branch != "" {
		opts.Branch = github.String(s.branch)
	}
	if _, _, err := s.client.Repositories.UpdateFile(ctx, s.owner, s.repo, p, opts); err != nil {
		return classifyGitHub(err, p)
	}
	return nil
}

// classifyGitHub maps API failures onto the domain sentinels: 404 for absent
// paths, 409 and 422 for writes against a stale or missing SHA.
func classifyGitHub(err error, p string) error {
	var ger *github.ErrorResponse
	if errors.As(err, &ger) && ger.Response != nil {
		switch ger.Response.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, p)
		case http.StatusConflict, http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s: %s", domain.ErrConflict, p, ger.Message)
		}
	}
	return err
}
