package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrFakeFailure is returned by fakes scripted to fail.
var ErrFakeFailure = errors.New("simulated provider failure")

// FakeSMSClient records messages in memory. The first FailFirst calls fail.
// Err, when set, is returned instead of ErrFakeFailure.
type FakeSMSClient struct {
	mu        sync.Mutex
	FailFirst int
	FailAll   bool
	Err       error
	Status    string
	Calls     int
	Sent      []FakeSMS
}

// FakeSMS is one message accepted by FakeSMSClient.
type FakeSMS struct {
	From, To, Body string
}

func (f *FakeSMSClient) CreateMessage(ctx context.Context, from, to, body string) (MessageReceipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.FailAll || f.Calls <= f.FailFirst {
		if f.Err != nil {
			return MessageReceipt{}, f.Err
		}
		return MessageReceipt{}, ErrFakeFailure
	}
	f.Sent = append(f.Sent, FakeSMS{From: from, To: to, Body: body})
	status := f.Status
	if status == "" {
		status = "queued"
	}
	return MessageReceipt{SID: fmt.Sprintf("SM%06d", len(f.Sent)), Status: status}, nil
}

// Messages returns a copy of everything sent so far.
func (f *FakeSMSClient) Messages() []FakeSMS {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeSMS(nil), f.Sent...)
}

// FakeEmailClient records messages in memory and answers with StatusCode
// (202 when unset) or Err.
type FakeEmailClient struct {
	mu         sync.Mutex
	StatusCode int
	Err        error
	Sent       []EmailMessage
}

func (f *FakeEmailClient) Send(ctx context.Context, msg EmailMessage) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	f.Sent = append(f.Sent, msg)
	if f.StatusCode == 0 {
		return 202, nil
	}
	return f.StatusCode, nil
}

// Messages returns a copy of everything sent so far.
func (f *FakeEmailClient) Messages() []EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EmailMessage(nil), f.Sent...)
}
