package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pfledger/internal/core"
)

func TestPersisterUsesConfiguredKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockKeyValueStore(ctrl)
	ctx := context.Background()
	p := NewPersister(store, "household", quietLogger)

	var written []byte
	store.EXPECT().
		Set(ctx, "household", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, value []byte) error {
			written = value
			return nil
		})
	store.EXPECT().Get(ctx, "household").DoAndReturn(func(context.Context, string) ([]byte, bool, error) {
		return written, true, nil
	})
	store.EXPECT().Delete(ctx, "household").Return(nil)

	l := sampleLedger(t)
	require.NoError(t, p.Save(ctx, l))
	got, err := p.Load(ctx)
	require.NoError(t, err)
	assertLedgerEqual(t, l, got)
	require.NoError(t, p.Clear(ctx))
}

func TestPersisterWrapsStoreErrors(t *testing.T) {
	tests := []struct {
		name string
		call func(p *Persister, store *MockKeyValueStore) error
	}{
		{
			name: "load",
			call: func(p *Persister, store *MockKeyValueStore) error {
				store.EXPECT().Get(gomock.Any(), DefaultKey).Return(nil, false, errors.New("disk gone"))
				l, err := p.Load(context.Background())
				assert.Equal(t, core.NewLedger(), l)
				return err
			},
		},
		{
			name: "save",
			call: func(p *Persister, store *MockKeyValueStore) error {
				store.EXPECT().Set(gomock.Any(), DefaultKey, gomock.Any()).Return(errors.New("quota exceeded"))
				return p.Save(context.Background(), core.NewLedger())
			},
		},
		{
			name: "clear",
			call: func(p *Persister, store *MockKeyValueStore) error {
				store.EXPECT().Delete(gomock.Any(), DefaultKey).Return(errors.New("read-only"))
				return p.Clear(context.Background())
			},
		},
		{
			name: "already wrapped",
			call: func(p *Persister, store *MockKeyValueStore) error {
				store.EXPECT().Set(gomock.Any(), DefaultKey, gomock.Any()).
					Return(errors.Join(ErrStorageUnavailable, errors.New("locked")))
				return p.Save(context.Background(), core.NewLedger())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			store := NewMockKeyValueStore(ctrl)
			p := NewPersister(store, "", quietLogger)

			err := tt.call(p, store)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrStorageUnavailable)
		})
	}
}

func TestPersisterRawPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockKeyValueStore(ctrl)
	p := NewPersister(store, "", quietLogger)

	payload := []byte(`{"categories":[], "transactions":[], "extra":true}`)
	store.EXPECT().Get(gomock.Any(), DefaultKey).Return(payload, true, nil)

	raw, ok, err := p.Raw(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, payload, raw)
}
