package querylog

import "github.com/andreyka/ClickHouse/storage"

// Колонка, по которой таблица лога упорядочена и партиционирована.
const orderByColumn = "event_time"

// tableSchema — ожидаемая структура таблицы лога запросов.
// Порядок колонок фиксирован и совпадает с порядком значений,
// которые формирует encodeElement. Структура может меняться при смене
// версии сервера; несовпадающая таблица откладывается в сторону
// (см. prepareTable), поэтому сравнение структур должно быть точным.
func tableSchema() storage.Schema {
	return storage.Schema{
		{Name: "type", Type: "UInt8"},
		{Name: "event_time", Type: "DateTime"},
		{Name: "query_start_time", Type: "DateTime"},
		{Name: "query_duration_ms", Type: "UInt64"},
		{Name: "read_rows", Type: "UInt64"},
		{Name: "read_bytes", Type: "UInt64"},
		{Name: "result_rows", Type: "UInt64"},
		{Name: "result_bytes", Type: "UInt64"},
		{Name: "query", Type: "String"},
		{Name: "interface", Type: "UInt8"},
		{Name: "http_method", Type: "UInt8"},
		{Name: "ip_address", Type: "String"},
		{Name: "user", Type: "String"},
		{Name: "query_id", Type: "String"},
	}
}
