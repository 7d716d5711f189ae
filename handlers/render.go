// Copyright (c) 2026 The VoxPop Authors. All rights reserved.
// See LICENSE for terms.

package handlers

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/guilhermeosaka/voxpop-web/ledger"
)

const barWidth = 20

type renderer struct {
	out  io.Writer
	bars bool
	now  time.Time
}

func newRenderer(env *Env) *renderer {
	return &renderer{out: env.Out, bars: env.Bars, now: env.Now()}
}

func (r *renderer) polls(views []ledger.PollView) {
	if !r.bars {
		r.tsv(views)
		return
	}
	for i, v := range views {
		if i > 0 {
			fmt.Fprintln(r.out)
		}
		r.card(v)
	}
}

// status describes whether the poll still takes votes
func (r *renderer) status(v ledger.PollView) string {
	exp := v.Poll.ExpiresAt
	switch {
	case v.Poll.IsClosed && exp == nil:
		return "closed"
	case v.Poll.IsClosed || v.Expired:
		return "closed " + humanize.RelTime(*exp, r.now, "ago", "from now")
	case exp != nil:
		return "closes " + humanize.RelTime(*exp, r.now, "ago", "from now")
	}
	return "open"
}

func votesLabel(n int) string {
	if n == 1 {
		return "1 vote"
	}
	return humanize.Comma(int64(n)) + " votes"
}

func bar(pct float64) string {
	filled := int(pct/100*barWidth + 0.5)
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}

func (r *renderer) card(v ledger.PollView) {
	fmt.Fprintf(r.out, "%s  %s\n", v.Poll.ID, v.Poll.Question)

	meta := []string{v.Poll.VoteMode.String() + " choice", r.status(v)}
	if v.Poll.HasCreated {
		meta = append(meta, "created by you")
	}
	fmt.Fprintf(r.out, "    %s\n", strings.Join(meta, ", "))

	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for i, opt := range v.Options {
		mark := "[ ]"
		if opt.Selected {
			mark = "[x]"
		}
		fmt.Fprintf(tw, "    %s %d. %s\t%s\t%5.1f%%\t%s\n",
			mark, i+1, opt.Value, bar(opt.Percentage), opt.Percentage, votesLabel(opt.Votes))
	}
	tw.Flush()
	fmt.Fprintf(r.out, "    %s total\n", votesLabel(v.TotalVotes))
}

// tsv writes one row per option for scripts
func (r *renderer) tsv(views []ledger.PollView) {
	fmt.Fprintln(r.out, "poll_id\tquestion\tmode\tstatus\toption_id\toption\tvotes\tpercent\tselected")
	for _, v := range views {
		status := "open"
		if v.Poll.IsClosed || v.Expired {
			status = "closed"
		}
		for _, opt := range v.Options {
			fmt.Fprintln(r.out, strings.Join([]string{
				v.Poll.ID,
				tsvField(v.Poll.Question),
				v.Poll.VoteMode.String(),
				status,
				opt.ID,
				tsvField(opt.Value),
				strconv.Itoa(opt.Votes),
				strconv.FormatFloat(opt.Percentage, 'f', 1, 64),
				strconv.FormatBool(opt.Selected),
			}, "\t"))
		}
	}
}

func tsvField(s string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(s)
}
