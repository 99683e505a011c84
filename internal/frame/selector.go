package frame

import (
	"fmt"
	"strings"
	"time"

	storeerr "github.com/voightp/esofile-reader-sub000/internal/errors"
	"github.com/voightp/esofile-reader-sub000/pkg/types"
)

// ColumnSelector names a subset of a frame's columns. The zero value
// selects every column. A selector is resolved once to a canonical
// ordered entry list before any I/O happens.
type ColumnSelector struct {
	kind colSelKind
	ids  []int
	mask []bool
	vars []types.Variable
}

type colSelKind uint8

const (
	selAll colSelKind = iota
	selIDs
	selMask
	selVars
)

// AllColumns selects every column in lookup-index order.
func AllColumns() ColumnSelector {
	return ColumnSelector{kind: selAll}
}

// ByIDs selects columns by numeric id, in the given order.
func ByIDs(ids ...int) ColumnSelector {
	return ColumnSelector{kind: selIDs, ids: ids}
}

// ByMask selects columns via a boolean mask aligned to the frame's
// current column order.
func ByMask(mask []bool) ColumnSelector {
	return ColumnSelector{kind: selMask, mask: mask}
}

// ByVariables selects columns by full identity tuple, in the given
// order.
func ByVariables(vars ...types.Variable) ColumnSelector {
	return ColumnSelector{kind: selVars, vars: vars}
}

// resolve maps the selector to an ordered entry list against the
// lookup index, failing if any requested id or identity is absent.
func (cs ColumnSelector) resolve(li *LookupIndex) ([]Entry, error) {
	switch cs.kind {
	case selAll:
		return li.Entries(), nil

	case selIDs:
		entries := make([]Entry, 0, len(cs.ids))
		var missing []string
		for _, id := range cs.ids {
			pos := li.Position(id)
			if pos == -1 {
				missing = append(missing, fmt.Sprintf("%d", id))
				continue
			}
			entries = append(entries, li.entries[pos])
		}
		if len(missing) > 0 {
			return nil, storeerr.NewColumnNotFound(
				fmt.Sprintf("frame: ids not found: %s", strings.Join(missing, ", ")))
		}
		return entries, nil

	case selMask:
		if len(cs.mask) != li.Len() {
			return nil, storeerr.NewValidationError(storeerr.CodeLengthMismatch,
				fmt.Sprintf("frame: mask of %d entries against %d columns", len(cs.mask), li.Len()))
		}
		var entries []Entry
		for i, keep := range cs.mask {
			if keep {
				entries = append(entries, li.entries[i])
			}
		}
		return entries, nil

	case selVars:
		entries := make([]Entry, 0, len(cs.vars))
		var missing []string
		for _, v := range cs.vars {
			pos := li.Position(v.ID)
			if pos == -1 || li.entries[pos].Variable != v {
				missing = append(missing, v.String())
				continue
			}
			entries = append(entries, li.entries[pos])
		}
		if len(missing) > 0 {
			return nil, storeerr.NewColumnNotFound(
				fmt.Sprintf("frame: variables not found: %s", strings.Join(missing, ", ")))
		}
		return entries, nil
	}
	return nil, fmt.Errorf("frame: unknown column selector kind %d", cs.kind)
}

// RowSelector names a row subset: everything, a positional range or a
// label (timestamp) range. Row slicing is applied after columns are
// assembled.
type RowSelector struct {
	kind       rowSelKind
	from, to   int
	fromT, toT time.Time
}

type rowSelKind uint8

const (
	rowAll rowSelKind = iota
	rowPositions
	rowLabels
)

// AllRows selects every row.
func AllRows() RowSelector {
	return RowSelector{kind: rowAll}
}

// ByPositions selects rows [from, to).
func ByPositions(from, to int) RowSelector {
	return RowSelector{kind: rowPositions, from: from, to: to}
}

// ByLabels selects rows whose timestamp falls inside [from, to].
func ByLabels(from, to time.Time) RowSelector {
	return RowSelector{kind: rowLabels, fromT: from, toT: to}
}

// bounds resolves the selector to a positional range against the index.
func (rs RowSelector) bounds(index *types.RowIndex) (int, int, error) {
	switch rs.kind {
	case rowAll:
		return 0, index.Len(), nil
	case rowPositions:
		if rs.from < 0 || rs.to > index.Len() || rs.from > rs.to {
			return 0, 0, storeerr.NewValidationError(storeerr.CodeInvalidPosition,
				fmt.Sprintf("frame: row range [%d:%d) out of range for %d rows", rs.from, rs.to, index.Len()))
		}
		return rs.from, rs.to, nil
	case rowLabels:
		return index.LabelRange(rs.fromT, rs.toT)
	}
	return 0, 0, fmt.Errorf("frame: unknown row selector kind %d", rs.kind)
}

// apply slices an assembled table to the selected rows.
func (rs RowSelector) apply(t *types.TableData) (*types.TableData, error) {
	if rs.kind == rowAll {
		return t, nil
	}
	from, to, err := rs.bounds(t.Index)
	if err != nil {
		return nil, err
	}
	return t.SliceRows(from, to)
}

// DropSelector names columns to remove: by exact identity, by id, or
// by one identity field matching a value set.
type DropSelector struct {
	kind   dropSelKind
	ids    []int
	vars   []types.Variable
	level  string
	values map[string]struct{}
}

type dropSelKind uint8

const (
	dropIDs dropSelKind = iota
	dropVars
	dropLevel
)

// DropIDs drops columns by numeric id.
func DropIDs(ids ...int) DropSelector {
	return DropSelector{kind: dropIDs, ids: ids}
}

// DropVariables drops columns by exact identity.
func DropVariables(vars ...types.Variable) DropSelector {
	return DropSelector{kind: dropVars, vars: vars}
}

// DropByLevel drops every column whose named identity field ("id",
// "table", "key", "type" or "units") equals one of the given values.
func DropByLevel(level string, values ...string) DropSelector {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return DropSelector{kind: dropLevel, level: level, values: set}
}

// resolve maps the selector to the entries it names.
func (ds DropSelector) resolve(li *LookupIndex) ([]Entry, error) {
	switch ds.kind {
	case dropIDs:
		return ByIDs(ds.ids...).resolve(li)
	case dropVars:
		return ByVariables(ds.vars...).resolve(li)
	case dropLevel:
		switch ds.level {
		case "id", "table", "key", "type", "units":
		default:
			return nil, storeerr.NewValidationError(storeerr.CodeInvalidLevel,
				fmt.Sprintf("frame: unknown identity field %q", ds.level))
		}
		var entries []Entry
		for _, e := range li.entries {
			fv, err := e.Variable.FieldValue(ds.level)
			if err != nil {
				return nil, err
			}
			if _, match := ds.values[fv]; match {
				entries = append(entries, e)
			}
		}
		if len(entries) == 0 {
			return nil, storeerr.NewColumnNotFound(
				fmt.Sprintf("frame: no columns with %s in requested set", ds.level))
		}
		return entries, nil
	}
	return nil, fmt.Errorf("frame: unknown drop selector kind %d", ds.kind)
}
