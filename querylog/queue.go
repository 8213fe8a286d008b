package querylog

import "time"

// DefaultQueueSize — ёмкость очереди по умолчанию. Выбрана достаточно
// большой, чтобы производители не блокировались во всех нормальных ситуациях.
const DefaultQueueSize = 1024

// ConcurrentBoundedQueue — потокобезопасная очередь фиксированной ёмкости
// между произвольным числом производителей и одним потребителем.
// Очередь сама ничего не знает о завершении работы: признак остановки
// живёт в QueryLog, а сигналом служит служебная запись KindShutdown.
type ConcurrentBoundedQueue struct {
	ch chan Element
}

func NewConcurrentBoundedQueue(capacity int) *ConcurrentBoundedQueue {
	if capacity <= 0 {
		capacity = DefaultQueueSize
	}
	return &ConcurrentBoundedQueue{ch: make(chan Element, capacity)}
}

// Push кладёт запись в очередь. Блокируется, пока очередь заполнена;
// записи никогда не отбрасываются молча.
func (q *ConcurrentBoundedQueue) Push(e Element) {
	q.ch <- e
}

// PushUnless кладёт запись в очередь, как Push, но прекращает ожидание,
// когда закрывается канал abort. Возвращает false, если запись в очередь
// не попала.
func (q *ConcurrentBoundedQueue) PushUnless(e Element, abort <-chan struct{}) bool {
	select {
	case q.ch <- e:
		return true
	case <-abort:
		return false
	}
}

// Pop забирает запись, блокируясь до её появления.
func (q *ConcurrentBoundedQueue) Pop() Element {
	return <-q.ch
}

// TryPop ждёт запись не дольше timeout.
func (q *ConcurrentBoundedQueue) TryPop(timeout time.Duration) (Element, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e := <-q.ch:
		return e, true
	case <-timer.C:
		return Element{}, false
	}
}

// Cap возвращает ёмкость очереди.
func (q *ConcurrentBoundedQueue) Cap() int {
	return cap(q.ch)
}

// Len возвращает текущее число записей в очереди.
func (q *ConcurrentBoundedQueue) Len() int {
	return len(q.ch)
}
