// Package executor is the executor driver of spec.md §4.5: given a
// transform.AlgoPlan or a plain pattern-matching query, it runs it against
// internal/catalog and internal/reldb and returns a Result. Per the
// architectural decision recorded in DESIGN.md, there is no separate
// "prepared SQL statement" step — the executor walks the AST directly,
// calling internal/catalog's typed methods in place of binding and
// stepping a SQL program, since that typed API already is the compiled
// plan spec.md §4.4/§4.5 describe.
package executor

// Result is the single value every query execution produces, per spec.md
// §4.5: "{success, column_names[], data[][], nodes_created, nodes_deleted,
// rels_created, rels_deleted, properties_set, error_message}".
type Result struct {
	Success       bool             `json:"success"`
	ColumnNames   []string         `json:"column_names,omitempty"`
	Data          [][]any          `json:"data,omitempty"`
	NodesCreated  int64            `json:"nodes_created"`
	NodesDeleted  int64            `json:"nodes_deleted"`
	RelsCreated   int64            `json:"rels_created"`
	RelsDeleted   int64            `json:"rels_deleted"`
	PropertiesSet int64            `json:"properties_set"`
	ErrorMessage  string           `json:"error_message,omitempty"`
}

// counters accumulates the side-effect counts CREATE/DELETE/SET/REMOVE
// branches report, per spec.md §4.5: "Counters are updated ... from
// explicit side-effect counting inside CREATE/DELETE/SET/REMOVE branches."
type counters struct {
	nodesCreated  int64
	nodesDeleted  int64
	relsCreated   int64
	relsDeleted   int64
	propertiesSet int64
}

func (c *counters) apply(r *Result) {
	r.NodesCreated += c.nodesCreated
	r.NodesDeleted += c.nodesDeleted
	r.RelsCreated += c.relsCreated
	r.RelsDeleted += c.relsDeleted
	r.PropertiesSet += c.propertiesSet
}
