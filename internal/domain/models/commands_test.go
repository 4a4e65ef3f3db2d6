package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want CommandType
		args []string
	}{
		{in: "/hoy", want: CommandToday},
		{in: "  /CAJA ", want: CommandCash},
		{in: "/reporte semanal", want: CommandReport, args: []string{"semanal"}},
		{in: "report monthly", want: CommandReport, args: []string{"monthly"}},
		{in: "/ayuda", want: CommandHelp},
		{in: "hola", want: CommandUnknown},
		{in: "", want: CommandUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			cmd := ParseCommand(tc.in)
			assert.Equal(t, tc.want, cmd.Type)
			assert.Equal(t, tc.args, cmd.Args)
		})
	}
}

func TestParsePeriod(t *testing.T) {
	for raw, want := range map[string]Period{
		"":        PeriodDaily,
		"semanal": PeriodWeekly,
		"Monthly": PeriodMonthly,
		"anual":   PeriodYearly,
	} {
		got, err := ParsePeriod(raw)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParsePeriod("quarterly")
	assert.Error(t, err)
}
