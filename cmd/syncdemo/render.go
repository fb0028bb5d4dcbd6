package main

import (
	"chat-sync/contract"
	"chat-sync/projection"
	"chat-sync/runtime"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

// Renderer redraws the terminal whenever the view or the conversation list changed.
type Renderer struct {
	out           io.Writer
	view          *runtime.ConversationView
	conversations *runtime.Conversations
	changed       *projection.Signal
	identity      contract.IdentityResolver
	tail          int
}

func (r *Renderer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.view.Updates():
		case <-r.changed.C():
		}
		render(r.out, r.view, r.conversations, r.identity, r.tail)
	}
}

// render prints the tail of the mirror and the typing line.
func render(w io.Writer, view *runtime.ConversationView, conversations *runtime.Conversations,
	identity contract.IdentityResolver, tail int) {
	messages := view.Messages()
	divider, hasDivider := view.UnreadDivider()
	start := max(0, len(messages)-tail)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Time", "From", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for idx := start; idx < len(messages); idx++ {
		if hasDivider && idx == divider.Index {
			table.Append([]string{"", "", fmt.Sprintf("--- %d new since %s ---", divider.Count, divider.Date.Format("15:04"))})
		}
		message := messages[idx]
		table.Append([]string{message.SentAt.Local().Format("15:04:05"), identity.DisplayName(message.Sender), message.Text()})
	}
	table.Render()

	typing := lo.Values(view.TypingUsers())
	slices.Sort(typing)
	switch len(typing) {
	case 0:
		fmt.Fprintln(w)
	case 1:
		fmt.Fprintln(w, color.New(color.FgYellow, color.OpItalic).Render(typing[0]+" is typing..."))
	default:
		fmt.Fprintln(w, color.New(color.FgYellow, color.OpItalic).Render(strings.Join(typing, ", ")+" are typing..."))
	}

	for _, info := range conversations.List() {
		summary := ""
		if info.LastMsgSent != nil {
			summary = info.LastMsgSent.Value
		}
		fmt.Fprintln(w, color.New(color.FgGray).Render(fmt.Sprintf("[%s] unread=%d %s",
			info.ID().String()[:8], info.UnreadCount, summary)))
	}
	fmt.Fprintln(w, color.New(color.FgCyan).Render("consumer: "+view.ConsumerState().String()))
}
