package commsutil

import (
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
)

func TestConnect(t *testing.T) {
	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}
	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("commsutil:connect_test - failed to create server: %v", err)
	}
	go ns.Start()
	defer ns.Shutdown()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("commsutil:connect_test - server failed to start")
	}

	nc, err := Connect(ns.ClientURL(), "commsutil-test")
	if err != nil {
		t.Fatalf("commsutil:connect_test - unexpected error: %v", err)
	}
	defer nc.Close()

	if !nc.IsConnected() {
		t.Error("commsutil:connect_test - expected connected state")
	}
}
