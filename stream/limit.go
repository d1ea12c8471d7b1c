package stream

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdle is how long a client's limiter is kept after its last
// connection attempt
const limiterIdle = 10 * time.Minute

// visitor is the limiter of a single client IP
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// connLimiter rate limits new viewer connections per client IP
type connLimiter struct {
	bucket    map[string]*visitor
	rate      rate.Limit
	burstSize int
	// lastSweep is when idle visitors were last removed
	lastSweep time.Time
	now       func() time.Time
	mutex     sync.Mutex
}

func newConnLimiter(connRate rate.Limit, burstSize int) *connLimiter {
	return &connLimiter{
		bucket:    make(map[string]*visitor),
		rate:      connRate,
		burstSize: burstSize,
		now:       time.Now,
	}
}

// limiterFor returns the limiter of the given client IP, removing the
// limiters of clients idle longer than limiterIdle
func (l *connLimiter) limiterFor(ip string) *rate.Limiter {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	now := l.now()

	if now.Sub(l.lastSweep) >= limiterIdle {
		for key, v := range l.bucket {
			if now.Sub(v.lastSeen) >= limiterIdle {
				delete(l.bucket, key)
			}
		}

		l.lastSweep = now
	}

	v, exist := l.bucket[ip]

	if !exist {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burstSize)}
		l.bucket[ip] = v
	}

	v.lastSeen = now

	return v.limiter
}

// size returns the number of client limiters held
func (l *connLimiter) size() int {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return len(l.bucket)
}

// wrap rejects requests from clients connecting too often
func (l *connLimiter) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		ip, _, err := net.SplitHostPort(r.RemoteAddr)

		if err != nil {
			ip = r.RemoteAddr
		}

		if !l.limiterFor(ip).Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}

		next(w, r)
	}
}
