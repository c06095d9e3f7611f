package source

import (
	"testing"

	"github.com/openhab/yamlpp/internal/tree"
)

func TestNewLocatorRecordsTopLevelKeyPositions(t *testing.T) {
	root := tree.NewMap()
	root.Keys = append(root.Keys, tree.NewString("things"))
	root.Vals = append(root.Vals, &tree.Value{Kind: tree.KindMap, Pos: tree.Pos{Line: 4, Column: 1}})

	loc := NewLocator(root)
	pos := loc.Position("things")
	if pos.Line != 4 || pos.Column != 1 {
		t.Fatalf("got %+v, want {4 1}", pos)
	}
}

func TestLocatorMissingKeyReturnsZeroPos(t *testing.T) {
	loc := NewLocator(tree.NewMap())
	pos := loc.Position("nope")
	if pos.Line != 0 || pos.Column != 0 {
		t.Fatalf("got %+v, want zero Pos", pos)
	}
}

func TestLocatorNonMapRootReturnsEmpty(t *testing.T) {
	loc := NewLocator(tree.NewString("scalar"))
	if pos := loc.Position("anything"); pos.Line != 0 {
		t.Fatalf("got %+v, want zero Pos", pos)
	}
}

func TestNilLocatorPositionIsSafe(t *testing.T) {
	var loc *Locator
	if pos := loc.Position("x"); pos.Line != 0 || pos.Column != 0 {
		t.Fatalf("got %+v, want zero Pos", pos)
	}
}
