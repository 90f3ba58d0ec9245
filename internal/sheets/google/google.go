package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"chitieu/internal/log"
	ports "chitieu/internal/sheets"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc    *gsheet.Service
	logger *log.Logger
}

// Ensure interface conformance
var _ ports.RowFetcher = (*Client)(nil)

// NewFromEnv creates a read-only Sheets client from service account
// credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	creds, err := credentialsFromEnv(ctx, logger)
	if err != nil {
		return nil, err
	}
	return New(ctx, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsReadonlyScope))
}

// New creates a client with explicit options.
func New(ctx context.Context, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	if logger == nil {
		logger = log.Discard()
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{svc: svc, logger: logger}, nil
}

// HasCredentials reports whether any service account variable is set.
func HasCredentials() bool {
	for _, k := range []string{"GOOGLE_SERVICE_ACCOUNT_JSON", "GOOGLE_SERVICE_ACCOUNT_FILE", "GOOGLE_APPLICATION_CREDENTIALS"} {
		if strings.TrimSpace(os.Getenv(k)) != "" {
			return true
		}
	}
	return false
}

func credentialsFromEnv(ctx context.Context, logger *log.Logger) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		logger.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		logger.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// FetchRows reads rangeName (DefaultRange when empty) as formatted values.
func (c *Client) FetchRows(ctx context.Context, spreadsheetID, rangeName string) ([][]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if strings.TrimSpace(rangeName) == "" {
		rangeName = ports.DefaultRange
	}

	resp, err := c.svc.Spreadsheets.Values.Get(spreadsheetID, rangeName).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ports.ErrSpreadsheetNotFound, spreadsheetID)
		}
		return nil, fmt.Errorf("read %s: %w", rangeName, err)
	}

	rows := toRows(resp.Values)
	c.logger.InfoContext(ctx, "Sheet rows fetched",
		"spreadsheet_id", spreadsheetID,
		"range", rangeName,
		log.FieldCount, len(rows))
	return rows, nil
}
