package node

import "fmt"

// Validate walks a top-level node sequence and checks the structural
// invariants from §3.2: heading levels fall in 1..6, and every table row has
// the same length as its header row. NodeID uniqueness follows from
// content-addressing plus parent-id chaining and is not re-verified here.
func Validate(blocks []Block) error {
	for _, b := range blocks {
		if err := validateBlock(b); err != nil {
			return err
		}
	}
	return nil
}

func validateBlock(b Block) error {
	switch n := b.(type) {
	case *Heading:
		if n.Level < 1 || n.Level > 6 {
			return fmt.Errorf("node: heading level %d out of range 1..6", n.Level)
		}
	case *Table:
		width := len(n.Headers)
		for i, row := range n.Rows {
			if len(row) != width {
				return fmt.Errorf("node: table row %d has %d cells, want %d", i, len(row), width)
			}
		}
	case *List:
		for _, item := range n.Items {
			if err := validateBlock(item); err != nil {
				return err
			}
		}
	case *ListItem:
		for _, child := range n.Children {
			if err := validateBlock(child); err != nil {
				return err
			}
		}
	case *Blockquote:
		for _, child := range n.Children {
			if err := validateBlock(child); err != nil {
				return err
			}
		}
	}
	return nil
}
