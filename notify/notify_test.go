package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDirectory map[int64]string

func (d staticDirectory) Email(ctx context.Context, id int64) (string, error) {
	email, ok := d[id]
	if !ok {
		return "", errors.New("no such user")
	}
	return email, nil
}

func TestLogSink(t *testing.T) {
	assert.NoError(t, LogSink{}.Notify(context.Background(), 1, "subject", "message"))
}

func TestSMTPSinkSends(t *testing.T) {
	directory := staticDirectory{3: "alice@example.com"}
	sink := NewSMTPSink("smtp.example.com:587", "noreply@lector.local", directory)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sink.send = func(addr, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := sink.Notify(context.Background(), 3, "Feed has exceeded the max number of retries", "Feed with id: 7 has exceeded the max number of retries.")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@lector.local", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Feed has exceeded the max number of retries")
	assert.Contains(t, string(gotMsg), "Feed with id: 7 has exceeded the max number of retries.")
}

func TestSMTPSinkRetriesTransientFailure(t *testing.T) {
	directory := staticDirectory{3: "alice@example.com"}
	sink := NewSMTPSink("smtp.example.com:587", "noreply@lector.local", directory)

	calls := 0
	sink.send = func(addr, from string, to []string, msg []byte) error {
		calls++
		if calls == 1 {
			return errors.New("451 temporary failure")
		}
		return nil
	}

	err := sink.Notify(context.Background(), 3, "subject", "message")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSMTPSinkGivesUpOnCancel(t *testing.T) {
	directory := staticDirectory{3: "alice@example.com"}
	sink := NewSMTPSink("smtp.example.com:587", "noreply@lector.local", directory)

	ctx, cancel := context.WithCancel(context.Background())
	sink.send = func(addr, from string, to []string, msg []byte) error {
		cancel()
		return errors.New("451 temporary failure")
	}

	err := sink.Notify(ctx, 3, "subject", "message")
	assert.Error(t, err)
}

func TestSMTPSinkUnknownOwner(t *testing.T) {
	sink := NewSMTPSink("smtp.example.com:587", "noreply@lector.local", staticDirectory{})

	calls := 0
	sink.send = func(addr, from string, to []string, msg []byte) error {
		calls++
		return nil
	}

	err := sink.Notify(context.Background(), 99, "subject", "message")
	assert.Error(t, err)
	assert.Zero(t, calls)
}
