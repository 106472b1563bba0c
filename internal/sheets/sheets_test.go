package sheets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSheetNameIsMonthScoped(t *testing.T) {
	s := &GoogleSink{
		sheetPrefix: "映像案件",
		month:       time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		logger:      zap.NewNop(),
	}
	require.Equal(t, "映像案件_2026年08月", s.sheetName())
}

func TestHeaderMatchesRecordColumnOrder(t *testing.T) {
	// The sixth column must stay source_url; the duplicate check reads
	// it by position across every previously written sheet.
	require.Equal(t, []interface{}{"取得日", "都道府県", "案件名", "概要", "締切", "掲載URL", "申込URL"}, headerRow)
	require.Equal(t, "F2:F", sourceURLColumn)
}
