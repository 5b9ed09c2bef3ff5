// internal/common/aws/ses.go
package aws

import (
	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

func NewSESClient(cfg sdkaws.Config) *ses.Client {
	return ses.NewFromConfig(cfg)
}
