package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/zappabad/stockbroker/internal/broker"
	marketservice "github.com/zappabad/stockbroker/internal/market/service"
)

// AlertKind selects how an alert is styled.
type AlertKind int

const (
	AlertInfo AlertKind = iota
	AlertSuccess
	AlertError
)

func (k AlertKind) String() string {
	switch k {
	case AlertSuccess:
		return "success"
	case AlertError:
		return "error"
	default:
		return "info"
	}
}

// Alert is a transient notice shown to the player.
type Alert struct {
	ID      uint64
	Kind    AlertKind
	Message string
	Expires time.Time
}

func tradeMessage(side broker.Side, err error) string {
	switch {
	case err == nil && side == broker.SideBuy:
		return "Stock purchased successfully!"
	case err == nil:
		return "Stock sold successfully!"
	case errors.Is(err, broker.ErrInsufficientFunds):
		return "Insufficient funds!"
	case errors.Is(err, broker.ErrNoHoldings):
		return "You don't have any shares to sell!"
	case errors.Is(err, broker.ErrSessionInactive):
		return "Trading is closed for this session."
	case errors.Is(err, marketservice.ErrUnknownInstrument):
		return "Unknown company."
	default:
		return fmt.Sprintf("Trade failed: %v", err)
	}
}

// showAlert replaces the current alert. It clears itself after AlertDuration
// unless a newer alert took its place.
func (g *Game) showAlert(kind AlertKind, msg string) {
	g.alertMu.Lock()
	g.alertSeq++
	id := g.alertSeq
	g.alert = &Alert{
		ID:      id,
		Kind:    kind,
		Message: msg,
		Expires: time.Now().Add(g.cfg.AlertDuration),
	}
	if g.alertTimer != nil {
		g.alertTimer.Stop()
	}
	g.alertTimer = time.AfterFunc(g.cfg.AlertDuration, func() {
		g.alertMu.Lock()
		cleared := g.alert != nil && g.alert.ID == id
		if cleared {
			g.alert = nil
		}
		g.alertMu.Unlock()
		if cleared {
			g.notify()
		}
	})
	g.alertMu.Unlock()

	g.notify()
}

// currentAlert returns the alert on display, if any.
func (g *Game) currentAlert() *Alert {
	g.alertMu.Lock()
	defer g.alertMu.Unlock()
	if g.alert == nil {
		return nil
	}
	a := *g.alert
	return &a
}

// DismissAlert clears the alert on display.
func (g *Game) DismissAlert() {
	g.alertMu.Lock()
	g.alert = nil
	if g.alertTimer != nil {
		g.alertTimer.Stop()
		g.alertTimer = nil
	}
	g.alertMu.Unlock()
	g.notify()
}
