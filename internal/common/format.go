/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package common

import (
	"fmt"
	"io"
	"strings"

	"charity-backend-go/internal/models"
)

const (
	DefaultWidth = 80
	WideWidth    = 100

	labelWidth   = 15
	maxRefLength = 24
	timeLayout   = "2006-01-02 15:04:05"
)

// Report renders the plain-text summaries of the admin commands.
type Report struct {
	w     io.Writer
	width int
}

func NewReport(w io.Writer, width int) *Report {
	return &Report{w: w, width: width}
}

func (r *Report) Rule() {
	fmt.Fprintln(r.w, strings.Repeat("=", r.width))
}

func (r *Report) Header(title string) {
	fmt.Fprintln(r.w)
	r.Rule()
	fmt.Fprintln(r.w, title)
	r.Rule()
}

func (r *Report) Footer(message string) {
	fmt.Fprintln(r.w)
	r.Rule()
	fmt.Fprintln(r.w, message)
	r.Rule()
	fmt.Fprintln(r.w)
}

// Field prints one aligned "label: value" line.
func (r *Report) Field(label string, value interface{}) {
	fmt.Fprintf(r.w, "%-*s %v\n", labelWidth, label+":", value)
}

// Wallet opens the box that groups the ledger lines of one user.
func (r *Report) Wallet(user UserInfo, entries int) {
	fmt.Fprintf(r.w, "\n┌─ Wallet: %s\n", user.Wallet)
	fmt.Fprintf(r.w, "│  Limit: %d  Points: %d\n", user.Limit, user.Points)
	fmt.Fprintf(r.w, "│  Ledger entries: %d\n", entries)
	fmt.Fprintln(r.w, "├"+strings.Repeat("─", r.width))
}

func (r *Report) LedgerEntry(entry models.LedgerEntry, isLast bool) {
	prefix := "│  "
	if isLast {
		prefix = "└  "
	}
	fmt.Fprintf(r.w, "%s %-8s %+12d  %10d -> %-10d %-27s %s\n",
		prefix,
		entry.Kind,
		entry.Amount,
		entry.LimitBefore,
		entry.LimitAfter,
		shortReference(entry.Reference),
		entry.CreatedAt.UTC().Format(timeLayout))
}

func shortReference(ref string) string {
	if len(ref) > maxRefLength {
		return ref[:maxRefLength] + "..."
	}
	return ref
}
