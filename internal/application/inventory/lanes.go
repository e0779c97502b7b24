package inventory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/stocker-ledger/internal/domain"
	"github.com/jhoicas/stocker-ledger/internal/domain/entity"
)

// DefaultLaneWait espera máxima por un carril cuando no se configura otra.
const DefaultLaneWait = 2 * time.Second

type lane struct {
	slot chan struct{}
	refs int
}

// LaneLocker carriles en memoria: un solo escritor por clave dentro del proceso.
// Los carriles sin esperas ni dueño se eliminan para no crecer con el catálogo.
type LaneLocker struct {
	mu    sync.Mutex
	lanes map[entity.LevelKey]*lane
	wait  time.Duration
}

var _ KeyLocker = (*LaneLocker)(nil)

// NewLaneLocker construye el locker con la espera máxima indicada.
func NewLaneLocker(wait time.Duration) *LaneLocker {
	if wait <= 0 {
		wait = DefaultLaneWait
	}
	return &LaneLocker{lanes: make(map[entity.LevelKey]*lane), wait: wait}
}

// Acquire toma el carril de la clave o falla con ErrBusy al vencer la espera.
// Si ctx se cancela antes devuelve ctx.Err().
func (l *LaneLocker) Acquire(ctx context.Context, key entity.LevelKey) (func(), error) {
	ln := l.ref(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ln.slot <- struct{}{}:
	case <-timer.C:
		l.unref(key, ln)
		return nil, domain.NewError(domain.ErrBusy, key,
			fmt.Sprintf("carril ocupado por más de %s", l.wait))
	case <-ctx.Done():
		l.unref(key, ln)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-ln.slot
			l.unref(key, ln)
		})
	}, nil
}

// Len número de carriles vivos.
func (l *LaneLocker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}

func (l *LaneLocker) ref(key entity.LevelKey) *lane {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln, ok := l.lanes[key]
	if !ok {
		ln = &lane{slot: make(chan struct{}, 1)}
		l.lanes[key] = ln
	}
	ln.refs++
	return ln
}

func (l *LaneLocker) unref(key entity.LevelKey, ln *lane) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, key)
	}
}
