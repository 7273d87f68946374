package service

import (
	"context"
	"io"
	"time"

	"github.com/aussiebroadwan/egabank/pkg/banksdk"
	"github.com/aussiebroadwan/egabank/pkg/slogx"
)

type StatementService struct {
	Bank *banksdk.SDKClient
}

// Download streams the PDF statement of number for [from, to] into w.
func (s *StatementService) Download(ctx context.Context, number string, from, to time.Time, w io.Writer) (*banksdk.Statement, error) {
	if from.After(to) {
		return nil, ErrInvalidPeriod
	}
	st, err := s.Bank.DownloadStatement(ctx, number, from, to, w)
	if err != nil {
		return nil, err
	}
	slogx.FromContext(ctx).Info("statement downloaded", "account", number, "file", st.Filename, "bytes", st.Size)
	return st, nil
}
