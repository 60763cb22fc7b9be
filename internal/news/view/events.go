package view

import "github.com/zappabad/stockbroker/internal/news"

// NewsEvent is emitted for every published news item.
type NewsEvent struct {
	Item news.NewsItem
}
