package validator

import "testing"

func TestCursor_Limit(t *testing.T) {
	c := NewCursor([]byte("aéb"))
	c.Advance(1)

	l := c.limit(3)
	if l.Offset() != 1 || l.Position() != c.Position() {
		t.Fatalf("a limited cursor must keep its position: %+v", l)
	}
	if string(l.Remaining()) != "é" {
		t.Fatalf("unexpected remaining input: %q", l.Remaining())
	}
	l.Advance(2)
	if !l.EOF() || l.Position().Index != 2 {
		t.Fatalf("a limited cursor must end at the limit: %+v", l)
	}
	if c.Offset() != 1 || string(c.Remaining()) != "éb" {
		t.Fatalf("limiting must not affect the original cursor: %+v", c)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("limiting a cursor behind its offset must panic")
			}
		}()
		c.limit(0)
	}()
}
