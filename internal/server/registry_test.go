package server

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

// TestRegistryCreateRoomAdmitsCreator verifies that room creation reserves
// the creator's slot immediately, so the registry never holds an empty room.
func TestRegistryCreateRoomAdmitsCreator(t *testing.T) {
	registry := NewRegistry()

	room, identity := registry.CreateRoom(2, "", "", SequentialCode)
	if room == nil {
		t.Fatal("CreateRoom() returned nil room")
	}
	if identity != "X" {
		t.Errorf("creator identity = %q, want %q", identity, "X")
	}
	if room.IsEmpty() {
		t.Error("fresh room has no members")
	}
	if registry.Len() != 1 {
		t.Errorf("registry.Len() = %d, want 1", registry.Len())
	}
}

// TestSequentialCodes verifies that sequentially numbered rooms get "1",
// "2", ... and that a collision with a surviving room redraws the code
// instead of looping or overwriting.
func TestSequentialCodes(t *testing.T) {
	registry := NewRegistry()

	first, _ := registry.CreateRoom(2, "", "Alice", SequentialCode)
	if first.ID != "1" {
		t.Errorf("first room ID = %q, want %q", first.ID, "1")
	}

	second, _ := registry.CreateRoom(2, "", "Bob", SequentialCode)
	if second.ID != "2" {
		t.Errorf("second room ID = %q, want %q", second.ID, "2")
	}

	// Delete room "1"; the count-based candidate "2" now collides with the
	// survivor and must be redrawn.
	registry.LeaveRoom("1", "Alice")

	third, _ := registry.CreateRoom(2, "", "Carol", SequentialCode)
	if _, err := registry.GetRoom(third.ID); err != nil {
		t.Fatalf("GetRoom(%q) error = %v", third.ID, err)
	}
	if third.ID == second.ID {
		t.Errorf("third room reused surviving room ID %q", second.ID)
	}
}

// TestRandomCodes verifies the shareable code generator: fixed length,
// restricted alphabet, and collision redraw against existing rooms.
func TestRandomCodes(t *testing.T) {
	gen := RandomCode(6)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := gen(0)
		if len(code) != 6 {
			t.Fatalf("code %q has length %d, want 6", code, len(code))
		}
		for _, ch := range code {
			if !strings.ContainsRune("ABCDEFGHJKMNPQRSTUVWXYZ23456789", ch) {
				t.Fatalf("code %q contains unexpected character %q", code, ch)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("generator produced a single code across 50 draws")
	}
}

// TestRegistryCollisionRedraw verifies that CreateRoom keeps drawing until
// the candidate identifier is unused.
func TestRegistryCollisionRedraw(t *testing.T) {
	registry := NewRegistry()
	registry.CreateRoom(2, "", "Alice", func(int) string { return "TAKEN" })

	calls := 0
	gen := func(int) string {
		calls++
		if calls == 1 {
			return "TAKEN"
		}
		return "FRESH"
	}

	room, _ := registry.CreateRoom(2, "", "Bob", gen)
	if room.ID != "FRESH" {
		t.Errorf("room ID = %q, want %q", room.ID, "FRESH")
	}
	if calls != 2 {
		t.Errorf("generator called %d times, want 2", calls)
	}
}

// TestRegistryJoinErrors verifies the admission error taxonomy at the
// registry level.
func TestRegistryJoinErrors(t *testing.T) {
	registry := NewRegistry()
	room, _ := registry.CreateRoom(2, "Game1", "Alice", RandomCode(6))

	if _, _, err := registry.JoinRoom("NOSUCH", "Bob"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("JoinRoom(unknown) error = %v, want ErrRoomNotFound", err)
	}

	if _, _, err := registry.JoinRoom(room.ID, "Alice"); !errors.Is(err, ErrDuplicateIdentity) {
		t.Errorf("JoinRoom(duplicate) error = %v, want ErrDuplicateIdentity", err)
	}

	if _, _, err := registry.JoinRoom(room.ID, "Bob"); err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}

	if _, _, err := registry.JoinRoom(room.ID, "Carol"); !errors.Is(err, ErrRoomFull) {
		t.Errorf("JoinRoom(full) error = %v, want ErrRoomFull", err)
	}
}

// TestRegistryLeaveDeletesEmptyRoom verifies that removing the last member
// deletes the room while earlier departures leave it in place, and that
// leaving an already absent room is a no-op.
func TestRegistryLeaveDeletesEmptyRoom(t *testing.T) {
	registry := NewRegistry()
	room, _ := registry.CreateRoom(2, "", "Alice", RandomCode(6))
	if _, _, err := registry.JoinRoom(room.ID, "Bob"); err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}

	registry.LeaveRoom(room.ID, "Alice")
	if _, err := registry.GetRoom(room.ID); err != nil {
		t.Fatalf("room deleted while a member remains: %v", err)
	}

	registry.LeaveRoom(room.ID, "Bob")
	if _, err := registry.GetRoom(room.ID); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("GetRoom() after last leave error = %v, want ErrRoomNotFound", err)
	}

	// Idempotent: the room is already gone.
	registry.LeaveRoom(room.ID, "Bob")
	if registry.Len() != 0 {
		t.Errorf("registry.Len() = %d, want 0", registry.Len())
	}
}

// TestRegistryBroadcastIsolationAcrossRooms verifies that a broadcast in
// one room is never delivered to members of another room.
func TestRegistryBroadcastIsolationAcrossRooms(t *testing.T) {
	registry := NewRegistry()

	roomA, _ := registry.CreateRoom(2, "", "Alice", RandomCode(6))
	roomB, _ := registry.CreateRoom(2, "", "Dave", RandomCode(6))
	if _, _, err := registry.JoinRoom(roomA.ID, "Bob"); err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}
	if _, _, err := registry.JoinRoom(roomB.ID, "Erin"); err != nil {
		t.Fatalf("JoinRoom() error = %v", err)
	}

	bob := &fakeConn{}
	erin := &fakeConn{}
	if err := roomA.BindConnection("Bob", bob); err != nil {
		t.Fatalf("BindConnection() error = %v", err)
	}
	if err := roomB.BindConnection("Erin", erin); err != nil {
		t.Fatalf("BindConnection() error = %v", err)
	}

	roomA.Broadcast("Alice", []byte("for room A only"))

	if got := len(bob.received()); got != 1 {
		t.Errorf("room A member received %d messages, want 1", got)
	}
	if got := len(erin.received()); got != 0 {
		t.Errorf("room B member received %d messages, want 0", got)
	}
}

// TestRegistryLeaveUnknownIdentityKeepsRoom verifies that leaving with an
// identity that was never admitted does not delete the room.
func TestRegistryLeaveUnknownIdentityKeepsRoom(t *testing.T) {
	registry := NewRegistry()
	room, _ := registry.CreateRoom(2, "", "Alice", RandomCode(6))

	registry.LeaveRoom(room.ID, "Ghost")

	if _, err := registry.GetRoom(room.ID); err != nil {
		t.Fatalf("room deleted by a leave from a non-member: %v", err)
	}
}

// TestRegistryJoinLastLeaveRace races a join against the departure of a
// room's last member. Whichever wins, the registry and the room must agree:
// a successful join means the room is still registered with the joiner in
// it, a failed join means the room is gone.
func TestRegistryJoinLastLeaveRace(t *testing.T) {
	const rounds = 300

	for i := 0; i < rounds; i++ {
		registry := NewRegistry()
		if room, _ := registry.CreateRoom(2, "", "Alice", func(int) string { return "R" }); room == nil {
			t.Fatal("CreateRoom() returned nil room")
		}

		var wg sync.WaitGroup
		var joinErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _, joinErr = registry.JoinRoom("R", "Bob")
		}()
		go func() {
			defer wg.Done()
			registry.LeaveRoom("R", "Alice")
		}()
		wg.Wait()

		if joinErr == nil {
			room, err := registry.GetRoom("R")
			if err != nil {
				t.Fatalf("round %d: join succeeded but room absent from registry", i)
			}
			names := room.MemberNames()
			found := false
			for _, name := range names {
				if name == "Bob" {
					found = true
				}
			}
			if !found {
				t.Fatalf("round %d: join succeeded but member missing: %v", i, names)
			}
			registry.LeaveRoom("R", "Bob")
		} else if !errors.Is(joinErr, ErrRoomNotFound) {
			t.Fatalf("round %d: unexpected join error: %v", i, joinErr)
		}

		if registry.Len() != 0 {
			t.Fatalf("round %d: registry holds %d rooms after cleanup, want 0", i, registry.Len())
		}
	}
}

// TestRegistryConcurrentJoinRace races many clients for the last free slot
// of a nearly full room; exactly one join succeeds and the room never
// exceeds its capacity.
func TestRegistryConcurrentJoinRace(t *testing.T) {
	const racers = 16
	registry := NewRegistry()
	room, _ := registry.CreateRoom(2, "", "Alice", RandomCode(6))

	var wg sync.WaitGroup
	errs := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, _, err := registry.JoinRoom(room.ID, "racer-"+strings.Repeat("i", n+1))
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, ErrRoomFull) {
			t.Errorf("unexpected join error: %v", err)
		}
	}

	if succeeded != 1 {
		t.Errorf("successful joins = %d, want 1", succeeded)
	}
	if got := len(room.MemberNames()); got != 2 {
		t.Errorf("member count = %d, want 2", got)
	}
}
