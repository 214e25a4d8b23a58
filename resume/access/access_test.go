package access

import (
	"errors"
	"testing"

	"resume-builder/resume/model"
)

func TestAccessRules(t *testing.T) {
	private := model.Resume{UserID: "alice"}
	public := model.Resume{UserID: "alice", IsPublic: true}
	alice := Principal{UserID: "alice"}
	bob := Principal{UserID: "bob"}

	cases := []struct {
		name     string
		resume   model.Resume
		who      Principal
		canRead  bool
		canWrite bool
	}{
		{"owner private", private, alice, true, true},
		{"owner public", public, alice, true, true},
		{"other private", private, bob, false, false},
		{"other public", public, bob, true, false},
		{"anonymous private", private, Anonymous(), false, false},
		{"anonymous public", public, Anonymous(), true, false},
	}
	for _, tc := range cases {
		if got := CanRead(tc.resume, tc.who) == nil; got != tc.canRead {
			t.Fatalf("%s: read expected %v", tc.name, tc.canRead)
		}
		err := CanWrite(tc.resume, tc.who)
		if got := err == nil; got != tc.canWrite {
			t.Fatalf("%s: write expected %v", tc.name, tc.canWrite)
		}
		if err != nil && !errors.Is(err, ErrForbidden) {
			t.Fatalf("%s: expected ErrForbidden, got %v", tc.name, err)
		}
	}
}

func TestAnonymousNeverOwnsOrphan(t *testing.T) {
	if IsOwner(model.Resume{}, Anonymous()) {
		t.Fatalf("anonymous caller must not own a resume without owner")
	}
}
