package querylog

import (
	"net/netip"
	"time"
)

// Kind — тип записи лога запросов.
// Числовые значения совпадают со значениями колонки type в таблице.
type Kind uint8

const (
	// KindShutdown — служебная запись для остановки фоновой горутины.
	// В таблицу никогда не попадает.
	KindShutdown    Kind = 0
	KindQueryStart  Kind = 1
	KindQueryFinish Kind = 2
)

// Interface — интерфейс сервера, через который пришёл запрос.
type Interface uint8

const (
	InterfaceTCP      Interface = 1
	InterfaceHTTP     Interface = 2
	InterfaceOLAPHTTP Interface = 3
)

// HTTPMethod — метод HTTP-запроса; имеет смысл только при InterfaceHTTP.
type HTTPMethod uint8

const (
	MethodUnknown HTTPMethod = 0
	MethodGet     HTTPMethod = 1
	MethodPost    HTTPMethod = 2
)

// Element — одна запись лога запросов.
// В зависимости от Kind заполнены не все поля: незаполненные остаются
// нулевыми значениями и в таком виде попадают в таблицу.
// Значение копируется целиком при передаче через очередь, общих ссылок нет.
type Element struct {
	Kind Kind

	EventTime      time.Time
	QueryStartTime time.Time
	DurationMS     uint64

	ReadRows  uint64
	ReadBytes uint64

	ResultRows  uint64
	ResultBytes uint64

	Query string

	Interface     Interface
	HTTPMethod    HTTPMethod
	ClientAddress netip.Addr
	User          string
	QueryID       string
}
