package notify

import (
	"net"
	"testing"
	"time"

	"github.com/goccy/go-json"

	synchub "cinehub/internal/sync"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", nil)
	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	t.Cleanup(func() {
		_ = srv.Close()
		<-done
	})

	for i := 0; i < 100 && srv.ListenAddr() == nil; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ListenAddr() == nil {
		t.Fatal("server did not start listening")
	}
	return srv
}

func register(t *testing.T, srv *Server, userID string) *net.UDPConn {
	t.Helper()
	client, err := net.DialUDP("udp", nil, srv.ListenAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	b, _ := json.Marshal(RegisterMessage{Type: RegisterMessageType, UserID: userID})
	if _, err := client.Write(b); err != nil {
		t.Fatalf("write: %v", err)
	}
	for i := 0; i < 100; i++ {
		if _, ok := srv.Registry.Lookup(userID); ok {
			return client
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("client was not registered")
	return nil
}

func TestVoteIsSentToAuthor(t *testing.T) {
	srv := startServer(t)
	client := register(t, srv, "author-1")

	srv.Publish(synchub.ReviewEvent{
		Type:     synchub.EventReviewVoted,
		ReviewID: "r1",
		ItemID:   "m1",
		ItemType: "Movie",
		UserID:   "voter-1",
		AuthorID: "author-1",
		Likes:    2,
		Dislikes: 1,
	})

	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 2048)
	n, err := client.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg VoteMessage
	if err := json.Unmarshal(buf[:n], &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := VoteMessage{Type: VoteMessageType, ReviewID: "r1", ItemID: "m1", ItemType: "Movie", Likes: 2, Dislikes: 1}
	if msg != want {
		t.Fatalf("msg = %+v, want %+v", msg, want)
	}
}

func TestOtherEventsAreIgnored(t *testing.T) {
	srv := startServer(t)
	client := register(t, srv, "author-1")

	srv.Publish(synchub.ReviewEvent{Type: synchub.EventReviewCreated, UserID: "author-1", AuthorID: "author-1"})
	srv.Publish(synchub.RatingEvent{Type: synchub.EventItemRating})
	srv.Publish(synchub.ReviewEvent{Type: synchub.EventReviewVoted, AuthorID: "someone-else"})

	_ = client.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	buf := make([]byte, 2048)
	if n, err := client.Read(buf); err == nil {
		t.Fatalf("unexpected datagram %q", buf[:n])
	}
}

func TestInvalidRegisterIsSkipped(t *testing.T) {
	srv := startServer(t)
	client, err := net.DialUDP("udp", nil, srv.ListenAddr().(*net.UDPAddr))
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	_, _ = client.Write([]byte("not json"))
	_, _ = client.Write([]byte(`{"type":"register"}`))
	register(t, srv, "u2")

	if got := srv.Registry.Len(); got != 1 {
		t.Fatalf("registered clients = %d, want 1", got)
	}
}

func TestPublishDropsUnreachableClient(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil)
	srv.Registry.Register("a", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9})
	srv.Publish(synchub.ReviewEvent{Type: synchub.EventReviewVoted, AuthorID: "a"})
	if srv.Registry.Len() != 0 {
		t.Fatal("client should be dropped after failed sends")
	}
}
