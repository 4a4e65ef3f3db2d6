package commands

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/comedor/internal/domain/models"
)

// ErrUnsupportedCommand indicates the text did not match any known command.
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrInvalidArguments indicates the command arguments could not be parsed.
var ErrInvalidArguments = errors.New("invalid command arguments")

// HelpText lists the supported commands.
const HelpText = "*Comandos disponibles*\n" +
	"/hoy - ventas de hoy\n" +
	"/caja - saldos de Capital y Ganancia\n" +
	"/reporte [diario|semanal|mensual|anual] - resumen del periodo\n" +
	"/ayuda - esta ayuda"

// ReportingAdapter defines the reporting functions required by the dispatcher.
type ReportingAdapter interface {
	TodaySummary(ctx context.Context) (string, error)
	CashSummary(ctx context.Context) (string, error)
	PeriodSummary(ctx context.Context, period models.Period) (string, error)
}

// Dispatcher answers parsed commands.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Service implements the Dispatcher interface.
type Service struct {
	reporting ReportingAdapter
	logger    *zap.Logger
}

// NewService constructs a command dispatcher.
func NewService(reporting ReportingAdapter, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{reporting: reporting, logger: logger}
}

// HandleCommand returns the reply text for cmd.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandToday:
		return s.reply("today summary", func() (string, error) { return s.reporting.TodaySummary(ctx) })
	case models.CommandCash:
		return s.reply("cash summary", func() (string, error) { return s.reporting.CashSummary(ctx) })
	case models.CommandReport:
		period := models.PeriodDaily
		if len(cmd.Args) > 0 {
			parsed, err := models.ParsePeriod(cmd.Args[0])
			if err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
			period = parsed
		}
		return s.reply("period summary", func() (string, error) { return s.reporting.PeriodSummary(ctx, period) })
	case models.CommandHelp:
		return HelpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) reply(what string, fn func() (string, error)) (string, error) {
	text, err := fn()
	if err != nil {
		return "", fmt.Errorf("build %s: %w", what, err)
	}
	return text, nil
}
