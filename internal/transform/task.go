// Package transform turns parsed blocks into flat rows for export.
package transform

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/fystack/solana-etl/internal/solana"
)

// Column describes one field of a task's rows.
type Column struct {
	Name string
	Type string
}

// Row holds one value per column of its task.
type Row []any

// ErrorRow reports a failure isolated to one unit of work.
type ErrorRow struct {
	Stage   string
	Source  string
	Message string
}

// ErrorColumns are the columns of error rows.
var ErrorColumns = []Column{
	{"name", "string"},
	{"block", "string"},
	{"message", "string"},
}

func (e ErrorRow) Values() []any {
	return []any{e.Stage, e.Source, e.Message}
}

func newErrorRow(stage string, block *solana.Block, err error) ErrorRow {
	return ErrorRow{Stage: stage, Source: block.Source, Message: err.Error()}
}

// Func transforms one block into data rows and error rows. It must not fail as a whole: every
// failure becomes an error row.
type Func func(block *solana.Block) ([]Row, []ErrorRow)

// Task is a named transform with the column metadata of its rows.
type Task struct {
	Name      string
	Columns   []Column
	Transform Func
}

// Record pairs the values of row with the task's column names.
func (t Task) Record(row Row) map[string]any {
	rec := make(map[string]any, len(t.Columns))
	for i, c := range t.Columns {
		if i < len(row) {
			rec[c.Name] = row[i]
		}
	}
	return rec
}

func (t Task) ColumnNames() []string {
	return lo.Map(t.Columns, func(c Column, _ int) string { return c.Name })
}

func (t Task) String() string { return t.Name }

var (
	Transactions = Task{Name: "transactions", Columns: transactionColumns, Transform: BlockToTransactions}
	Transfers    = Task{Name: "transfers", Columns: transferColumns, Transform: BlockToTransfers}
	Blocks       = Task{Name: "blocks", Columns: blockColumns, Transform: BlockInfo}
)

// All returns every task.
func All() []Task {
	return []Task{Transactions, Transfers, Blocks}
}

// TaskFromName finds a task by case-insensitive name.
func TaskFromName(name string) (Task, error) {
	task, ok := lo.Find(All(), func(t Task) bool {
		return strings.EqualFold(t.Name, strings.TrimSpace(name))
	})
	if !ok {
		return Task{}, fmt.Errorf("unknown task %q", name)
	}
	return task, nil
}

// TasksFromNames resolves names to tasks without duplicates. "all" selects every task.
func TasksFromNames(names []string) ([]Task, error) {
	var tasks []Task
	for _, name := range names {
		if strings.EqualFold(strings.TrimSpace(name), "all") {
			return All(), nil
		}
		task, err := TaskFromName(name)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return lo.UniqBy(tasks, func(t Task) string { return t.Name }), nil
}
