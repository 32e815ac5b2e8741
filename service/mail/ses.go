package mail

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
)

const charsetUTF8 = "UTF-8"

// API bundles the SES interactions in a reasonably sized interface.
type API interface {
	SendEmailWithContext(
		ctx aws.Context,
		input *ses.SendEmailInput,
		opts ...request.Option,
	) (*ses.SendEmailOutput, error)
}

type sesService struct {
	api    API
	sender string
}

// SESService returns a Service implementation delivering through AWS SES.
func SESService(api API, sender string) Service {
	return &sesService{
		api:    api,
		sender: sender,
	}
}

func (s *sesService) Send(ctx context.Context, to, subject, html string) error {
	_, err := s.api.SendEmailWithContext(ctx, &ses.SendEmailInput{
		Destination: &ses.Destination{
			ToAddresses: []*string{
				aws.String(to),
			},
		},
		Message: &ses.Message{
			Body: &ses.Body{
				Html: &ses.Content{
					Charset: aws.String(charsetUTF8),
					Data:    aws.String(html),
				},
			},
			Subject: &ses.Content{
				Charset: aws.String(charsetUTF8),
				Data:    aws.String(subject),
			},
		},
		Source: aws.String(s.sender),
	})
	if err != nil {
		return wrapError(ErrDelivery, "ses send to %s: %s", to, err)
	}

	return nil
}
