package view

import (
	"sync"

	"github.com/zappabad/stockbroker/internal/news"
)

// NewsView keeps the news log and the notice currently on display.
type NewsView struct {
	mu    sync.RWMutex
	buf   []news.NewsItem
	size  int
	start int
	count int

	notice    news.NewsItem
	hasNotice bool
}

// NewNewsView creates a new NewsView holding up to capacity items.
func NewNewsView(capacity int) *NewsView {
	if capacity <= 0 {
		capacity = 100
	}
	return &NewsView{
		buf:  make([]news.NewsItem, capacity),
		size: capacity,
	}
}

// Apply logs the item and puts it on display.
func (v *NewsView) Apply(ev NewsEvent) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.notice = ev.Item
	v.hasNotice = true

	if v.count < v.size {
		v.buf[(v.start+v.count)%v.size] = ev.Item
		v.count++
		return
	}
	// overwrite oldest
	v.buf[v.start] = ev.Item
	v.start = (v.start + 1) % v.size
}

// Expire takes id off display. A newer notice is left alone.
func (v *NewsView) Expire(id news.NewsID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.hasNotice || v.notice.ID != id {
		return false
	}
	v.notice = news.NewsItem{}
	v.hasNotice = false
	return true
}

// Notice returns the item currently on display.
func (v *NewsView) Notice() (news.NewsItem, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.notice, v.hasNotice
}

// Latest returns the last n news items in chronological order (oldest first).
// Returns a copy (not internal references).
func (v *NewsView) Latest(n int) []news.NewsItem {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if n <= 0 || v.count == 0 {
		return nil
	}
	if n > v.count {
		n = v.count
	}

	out := make([]news.NewsItem, n)
	first := (v.start + (v.count - n)) % v.size
	for i := 0; i < n; i++ {
		out[i] = v.buf[(first+i)%v.size]
	}
	return out
}

// Reset drops the log and the notice.
func (v *NewsView) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.start, v.count = 0, 0
	v.notice = news.NewsItem{}
	v.hasNotice = false
}

// Count returns the number of news items in the view.
func (v *NewsView) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.count
}
