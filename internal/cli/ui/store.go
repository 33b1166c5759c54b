package ui

import (
	"context"
	"fmt"
	"strings"

	"craftcloud/internal/payment"
	"craftcloud/pkg/sdk"

	tea "github.com/charmbracelet/bubbletea"
)

func (m model) updateStore(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.screen = screenServers
	case "up", "k":
		if m.storeCursor > 0 {
			m.storeCursor--
		}
	case "down", "j":
		if m.storeCursor < len(payment.Packages)-1 {
			m.storeCursor++
		}
	case "left", "right", "h", "l":
		m.provider = (m.provider + 1) % len(payment.Providers)
	case "enter":
		pkg := payment.Packages[m.storeCursor]
		provider := payment.Providers[m.provider]
		m.message = fmt.Sprintf("Opening %s checkout for %s...", provider, pkg.Name)
		return m, buyCmd(m.ctx, m.store, pkg.ID, provider)
	}
	return m, nil
}

func (m model) storeView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Buy credits"))
	b.WriteString("\n\n")
	for i, p := range payment.Packages {
		cursor := "  "
		if i == m.storeCursor {
			cursor = "> "
		}
		line := fmt.Sprintf("%s%-13s %5d credits  $%.2f", cursor, p.Name, p.Credits, p.PriceUSD)
		if i == m.storeCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\nProvider: ")
	for i, p := range payment.Providers {
		if i == m.provider {
			b.WriteString(selectedStyle.Render("[" + p + "]"))
		} else {
			b.WriteString(descStyle.Render(" " + p + " "))
		}
		b.WriteString(" ")
	}
	return b.String()
}

func buyCmd(ctx context.Context, store *payment.Store, packageID, provider string) tea.Cmd {
	return func() tea.Msg {
		url, err := store.Buy(ctx, packageID, provider)
		switch {
		case err == nil:
			return actionResultMsg(fmt.Sprintf("Redirecting to %s...", provider))
		case url != "":
			return actionResultMsg("Open this link to pay: " + url)
		default:
			return actionResultMsg("Payment failed: " + sdk.Message(err))
		}
	}
}
