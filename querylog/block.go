package querylog

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/andreyka/ClickHouse/storage"
)

// buildBlock превращает накопленные записи в блок для вставки.
// Порядок строк сохраняется; порядок значений в строке соответствует
// tableSchema().
func buildBlock(elements []Element) (storage.Block, error) {
	rows := make([][]any, 0, len(elements))
	for i := range elements {
		row, err := encodeElement(&elements[i])
		if err != nil {
			return storage.Block{}, err
		}
		rows = append(rows, row)
	}
	return storage.Block{Columns: tableSchema(), Rows: rows}, nil
}

func encodeElement(e *Element) ([]any, error) {
	switch e.Kind {
	case KindQueryStart, KindQueryFinish:
	default:
		// Служебные записи в таблицу не попадают.
		return nil, fmt.Errorf("encode element: unexpected kind %d", e.Kind)
	}
	return []any{
		uint8(e.Kind),
		encodeTime(e.EventTime),
		encodeTime(e.QueryStartTime),
		e.DurationMS,
		e.ReadRows,
		e.ReadBytes,
		e.ResultRows,
		e.ResultBytes,
		e.Query,
		uint8(e.Interface),
		uint8(e.HTTPMethod),
		encodeAddr(e.ClientAddress),
		e.User,
		e.QueryID,
	}, nil
}

// encodeTime приводит время к секундному разрешению.
// Нулевое время кодируется началом эпохи, чтобы в колонку DateTime
// никогда не попадало значение вне её диапазона.
func encodeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.Truncate(time.Second)
}

func encodeAddr(a netip.Addr) string {
	if !a.IsValid() {
		return ""
	}
	return a.String()
}
