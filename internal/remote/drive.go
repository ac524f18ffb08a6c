package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// DriveClient implements Client against Google Drive using the drive.file
// scope: it only ever sees files it created.
type DriveClient struct {
	svc *drive.Service
}

// NewDriveClient builds a Drive client from an OAuth client secret and a
// cached user token. A missing or unreadable token returns ErrAuthRequired;
// run the setup flow (AuthURL + ExchangeCode) to mint one.
func NewDriveClient(ctx context.Context, credentialsPath, tokenPath string) (*DriveClient, error) {
	cfg, err := oauthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("no cached token at %s: %w", tokenPath, ErrAuthRequired)
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveClient{svc: svc}, nil
}

// AuthURL returns the browser URL that starts the one-time authorization
// flow for the given client secret.
func AuthURL(credentialsPath string) (string, error) {
	cfg, err := oauthConfig(credentialsPath)
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline), nil
}

// ExchangeCode trades the authorization code pasted back by the user for a
// refresh token and caches it at tokenPath.
func ExchangeCode(ctx context.Context, credentialsPath, tokenPath, code string) error {
	cfg, err := oauthConfig(credentialsPath)
	if err != nil {
		return err
	}
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(tokenPath), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	f, err := os.OpenFile(tokenPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("failed to cache token: %w", err)
	}
	return nil
}

func oauthConfig(credentialsPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secret %s: %w", credentialsPath, err)
	}
	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret: %w", err)
	}
	return cfg, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (c *DriveClient) EnsureFolder(ctx context.Context, parentID, name string) (string, error) {
	existing, err := c.findChild(ctx, parentID, name, true)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}

	meta := &drive.File{
		Name:     name,
		MimeType: FolderMimeType,
	}
	if parentID != "" {
		meta.Parents = []string{parentID}
	}
	created, err := c.svc.Files.Create(meta).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %q: %w", name, wrapDriveErr(err))
	}
	return created.Id, nil
}

func (c *DriveClient) FindFile(ctx context.Context, folderID, name string) (*File, error) {
	return c.findChild(ctx, folderID, name, false)
}

func (c *DriveClient) ListFolder(ctx context.Context, folderID string) ([]File, error) {
	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)
	var files []File
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, mimeType, modifiedTime, size)").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list folder %s: %w", folderID, wrapDriveErr(err))
		}
		for _, f := range page.Files {
			files = append(files, toFile(f))
		}
		if page.NextPageToken == "" {
			return files, nil
		}
		pageToken = page.NextPageToken
	}
}

func (c *DriveClient) Upload(ctx context.Context, folderID, name, mimeType string, data []byte) (string, error) {
	meta := &drive.File{Name: name}
	if folderID != "" {
		meta.Parents = []string{folderID}
	}
	created, err := c.svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %q: %w", name, wrapDriveErr(err))
	}
	return created.Id, nil
}

func (c *DriveClient) Update(ctx context.Context, fileID string, data []byte) error {
	_, err := c.svc.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update file %s: %w", fileID, wrapDriveErr(err))
	}
	return nil
}

func (c *DriveClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", fileID, wrapDriveErr(err))
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", fileID, err)
	}
	return data, nil
}

func (c *DriveClient) Delete(ctx context.Context, fileID string) error {
	err := c.svc.Files.Delete(fileID).Context(ctx).Do()
	if err != nil && !errors.Is(wrapDriveErr(err), ErrNotFound) {
		return fmt.Errorf("failed to delete file %s: %w", fileID, wrapDriveErr(err))
	}
	return nil
}

func (c *DriveClient) findChild(ctx context.Context, parentID, name string, folder bool) (*File, error) {
	query := fmt.Sprintf("name = '%s' and trashed = false", escapeQuery(name))
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", parentID)
	}
	if folder {
		query += fmt.Sprintf(" and mimeType = '%s'", FolderMimeType)
	}

	page, err := c.svc.Files.List().
		Q(query).
		Fields("files(id, name, mimeType, modifiedTime, size)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to find %q: %w", name, wrapDriveErr(err))
	}
	if len(page.Files) == 0 {
		return nil, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	f := toFile(page.Files[0])
	return &f, nil
}

func toFile(f *drive.File) File {
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return File{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Modified: modified,
		Size:     f.Size,
	}
}

// escapeQuery escapes single quotes for Drive query strings.
func escapeQuery(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

// wrapDriveErr maps Drive 404s onto ErrNotFound so callers can errors.Is
// without importing googleapi.
func wrapDriveErr(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return fmt.Errorf("%v: %w", apiErr.Message, ErrNotFound)
	}
	return err
}
