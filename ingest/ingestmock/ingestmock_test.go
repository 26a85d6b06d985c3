package ingestmock_test

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/luxfi/mempulse/ingest"
	"github.com/luxfi/mempulse/ingest/ingestmock"
	"github.com/luxfi/mempulse/txdecode"
)

func TestMockProviderSatisfiesProviderInterface(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := ingestmock.NewMockProvider(ctrl)

	want := ingest.Fetched{Raw: txdecode.RawTxInput{Hash: "0xdead"}}
	m.EXPECT().Fetch(gomock.Any()).Return(want, nil).Times(1)

	var p ingest.Provider = m
	got, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Raw.Hash != want.Raw.Hash {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
