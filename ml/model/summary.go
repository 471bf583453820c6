/*
 *	Copyright 2026 The Weft Authors
 *
 *	Licensed under the Apache License, Version 2.0 (the "License");
 *	you may not use this file except in compliance with the License.
 *	You may obtain a copy of the License at
 *
 *	http://www.apache.org/licenses/LICENSE-2.0
 *
 *	Unless required by applicable law or agreed to in writing, software
 *	distributed under the License is distributed on an "AS IS" BASIS,
 *	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *	See the License for the specific language governing permissions and
 *	limitations under the License.
 */

package model

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/weftml/weft/graph"
	"github.com/weftml/weft/ml/layers"
	"github.com/weftml/weft/types/xslices"
)

var (
	summaryHeaderStyle = lipgloss.NewStyle().Bold(true).Align(lipgloss.Center).Padding(0, 1)
	summaryOddStyle    = lipgloss.NewStyle().Padding(0, 1)
	summaryEvenStyle   = lipgloss.NewStyle().Faint(true).Padding(0, 1)
	summaryBorderColor = "#705090"
)

// Summary writes a table of the model's layers to w: one row per step of
// the execution plan, with the layer name, its type, the output
// signatures and the parameter count.
func (m *Model) Summary(w io.Writer) error {
	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color(summaryBorderColor))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row < 0 {
				return summaryHeaderStyle
			}
			if row%2 == 1 {
				return summaryEvenStyle
			}
			return summaryOddStyle
		}).
		Headers("Layer (type)", "Output signature", "Params")

	counted := make(map[layers.Layer]bool)
	for _, s := range m.steps {
		outputs := strings.Join(
			xslices.Map(s.record.Outputs(), func(v *graph.Value) string { return v.Shape().String() }),
			", ")
		numParams := "0"
		if pl, ok := s.layer.(layers.ParameterizedLayer); ok {
			total := 0
			for _, p := range pl.Parameters() {
				total += p.Value().Size()
			}
			if counted[s.layer] {
				numParams = "(shared)"
			} else {
				numParams = humanize.Comma(int64(total))
			}
		}
		counted[s.layer] = true
		table.Row(fmt.Sprintf("%s (%s)", s.layer.Name(), layerTypeName(s.layer)), outputs, numParams)
	}

	var memory uintptr
	for _, p := range m.Parameters() {
		memory += p.Value().Memory()
	}
	if _, err := fmt.Fprintf(w, "Model: %q\n%s\nTotal params: %s (%s)\n",
		m.name, table, humanize.Comma(int64(m.NumParameters())), humanize.Bytes(uint64(memory))); err != nil {
		return err
	}
	return nil
}

// layerTypeName returns a short type name for a layer ("Dense", "Add").
func layerTypeName(layer layers.Layer) string {
	name := fmt.Sprintf("%T", layer)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return name
}
