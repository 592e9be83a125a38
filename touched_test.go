// Touched-table bloom filter tests.
package h2undo

import "testing"

func TestTouchedFilterAddContains(t *testing.T) {
	f := newTouchedFilter()

	if f.contains("accounts") {
		t.Error("empty filter should not contain anything")
	}

	f.add("accounts")
	if !f.contains("accounts") {
		t.Error("filter must contain a table it was given")
	}
}

func TestTouchedFilterReset(t *testing.T) {
	f := newTouchedFilter()
	f.add("accounts")
	f.reset()

	if f.contains("accounts") {
		t.Error("reset should clear all bits")
	}
}

func TestTouchedFilterNoFalseNegatives(t *testing.T) {
	f := newTouchedFilter()
	tables := []string{"accounts", "orders", "line_items", "customers", "inventory"}

	for _, name := range tables {
		f.add(name)
	}
	for _, name := range tables {
		if !f.contains(name) {
			t.Errorf("filter reports a false negative for %q", name)
		}
	}
}
