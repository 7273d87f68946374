package banksdk

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"time"
)

// Statement describes a downloaded account statement.
type Statement struct {
	Filename    string
	ContentType string
	Size        int64
}

// DownloadStatement streams the PDF statement of one account for the
// period [from, to] into w.
func (c *SDKClient) DownloadStatement(
	ctx context.Context,
	number string,
	from, to time.Time,
	w io.Writer,
) (*Statement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.url("/statements/"+url.PathEscape(number), dateRange(from, to)), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, parseErrorResponse(resp, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement: %w", err)
	}

	st := &Statement{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        n,
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		st.Filename = params["filename"]
	}
	if st.Filename == "" {
		st.Filename = fmt.Sprintf("releve_%s_%s_%s.pdf", number, from.Format(DateLayout), to.Format(DateLayout))
	}
	return st, nil
}
