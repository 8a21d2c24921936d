package streaming

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeFrameTimeout = time.Second

type outbound struct {
	messageType int
	data        []byte
}

// wsSubscriber writes queued messages to one websocket connection from a
// dedicated goroutine so Deliver never blocks the broadcaster.
type wsSubscriber struct {
	conn         *websocket.Conn
	queue        chan outbound
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newWSSubscriber(conn *websocket.Conn, queueSize int, writeTimeout time.Duration) *wsSubscriber {
	return &wsSubscriber{
		conn:         conn,
		queue:        make(chan outbound, queueSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

func (s *wsSubscriber) Acknowledge(msg StatusMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.enqueue(outbound{websocket.TextMessage, data})
}

func (s *wsSubscriber) Deliver(chunk []byte) error {
	return s.enqueue(outbound{websocket.BinaryMessage, chunk})
}

// Close stops the writer, which then closes the connection. The client
// gets a try-again-later close frame so it knows to reconnect.
func (s *wsSubscriber) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *wsSubscriber) enqueue(m outbound) error {
	select {
	case <-s.done:
		return ErrSubscriberClosed
	default:
	}

	select {
	case s.queue <- m:
		return nil
	default:
		return ErrSubscriberBacklogged
	}
}

// writeLoop drains the queue until Close or the first write error. Either
// way the connection is closed on return, which ends the handler's read loop.
func (s *wsSubscriber) writeLoop() {
	defer s.Close()
	for {
		// a closed subscriber must not keep writing whatever is still queued
		select {
		case <-s.done:
			s.closeConn()
			return
		default:
		}

		select {
		case <-s.done:
			s.closeConn()
			return
		case m := <-s.queue:
			if s.writeTimeout > 0 {
				_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			}
			if err := s.conn.WriteMessage(m.messageType, m.data); err != nil {
				_ = s.conn.Close()
				return
			}
		}
	}
}

func (s *wsSubscriber) closeConn() {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "subscriber closed"),
		time.Now().Add(closeFrameTimeout))
	_ = s.conn.Close()
}
