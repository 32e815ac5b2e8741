package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
)

type stubAPI struct {
	err  error
	last *ses.SendEmailInput
}

func (s *stubAPI) SendEmailWithContext(
	ctx aws.Context,
	input *ses.SendEmailInput,
	opts ...request.Option,
) (*ses.SendEmailOutput, error) {
	s.last = input

	if s.err != nil {
		return nil, s.err
	}

	return &ses.SendEmailOutput{}, nil
}

func TestSESServiceSend(t *testing.T) {
	api := &stubAPI{}

	s := SESService(api, "no-reply@lariyu.shop")

	err := s.Send(
		context.Background(),
		"user@example.com",
		"Confirm your account",
		"<html><body>hello</body></html>",
	)
	if err != nil {
		t.Fatal(err)
	}

	if have, want := aws.StringValue(api.last.Source), "no-reply@lariyu.shop"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := len(api.last.Destination.ToAddresses), 1; have != want {
		t.Fatalf("have %v, want %v", have, want)
	}

	if have, want := aws.StringValue(api.last.Destination.ToAddresses[0]), "user@example.com"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := aws.StringValue(api.last.Message.Subject.Data), "Confirm your account"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}

	if have, want := aws.StringValue(api.last.Message.Body.Html.Data), "<html><body>hello</body></html>"; have != want {
		t.Errorf("have %v, want %v", have, want)
	}
}

func TestSESServiceSendFailure(t *testing.T) {
	api := &stubAPI{err: errors.New("throttled")}

	s := SESService(api, "no-reply@lariyu.shop")

	err := s.Send(context.Background(), "user@example.com", "subject", "body")
	if !IsDelivery(err) {
		t.Errorf("have %v, want %v", err, ErrDelivery)
	}
}
