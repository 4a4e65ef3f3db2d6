package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

type stubReporting struct {
	period models.Period
	err    error
}

func (s *stubReporting) TodaySummary(context.Context) (string, error) {
	return "hoy", s.err
}

func (s *stubReporting) CashSummary(context.Context) (string, error) {
	return "caja", s.err
}

func (s *stubReporting) PeriodSummary(_ context.Context, p models.Period) (string, error) {
	s.period = p
	return "periodo " + string(p), s.err
}

func TestHandleCommand(t *testing.T) {
	stub := &stubReporting{}
	svc := NewService(stub, nil)
	ctx := context.Background()

	cases := map[string]string{
		"/hoy":             "hoy",
		"caja":             "caja",
		"/saldo":           "caja",
		"/reporte":         "periodo daily",
		"/reporte semanal": "periodo weekly",
		"/report mes":      "periodo monthly",
		"/ayuda":           HelpText,
	}
	for text, want := range cases {
		t.Run(text, func(t *testing.T) {
			got, err := svc.HandleCommand(ctx, models.ParseCommand(text), "59170000000")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestHandleCommandErrors(t *testing.T) {
	svc := NewService(&stubReporting{}, nil)
	ctx := context.Background()

	_, err := svc.HandleCommand(ctx, models.ParseCommand("/huevos 12"), "1")
	assert.ErrorIs(t, err, ErrUnsupportedCommand)

	_, err = svc.HandleCommand(ctx, models.ParseCommand("/reporte trimestral"), "1")
	assert.ErrorIs(t, err, ErrInvalidArguments)

	failing := NewService(&stubReporting{err: errors.New("mongo down")}, nil)
	_, err = failing.HandleCommand(ctx, models.ParseCommand("/hoy"), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mongo down")
}
