// Package providers builds the configured llm.Client. The default
// provider is the plain OpenAI-compatible HTTP client, which also
// covers Perplexity; every other provider name is routed through the
// uniai multi-provider client.
package providers

import (
	"net/http"
	"strings"

	"github.com/spf13/viper"

	"github.com/IlliaSobcko/AIBI-Project/llm"
	"github.com/IlliaSobcko/AIBI-Project/providers/openai"
	"github.com/IlliaSobcko/AIBI-Project/providers/uniai"
)

func FromViper() llm.Client {
	provider := strings.ToLower(strings.TrimSpace(viper.GetString("llm.provider")))
	switch provider {
	case "", "openai":
		client := openai.New(viper.GetString("llm.endpoint"), viper.GetString("llm.api_key"))
		if d := viper.GetDuration("llm.request_timeout"); d > 0 {
			client.HTTP = &http.Client{Timeout: d}
		}
		return client
	default:
		return uniai.New(uniai.Config{
			Provider:            provider,
			Endpoint:            viper.GetString("llm.endpoint"),
			APIKey:              viper.GetString("llm.api_key"),
			Model:               viper.GetString("llm.model"),
			RequestTimeout:      viper.GetDuration("llm.request_timeout"),
			AzureAPIKey:         viper.GetString("llm.azure_api_key"),
			AzureEndpoint:       viper.GetString("llm.azure_endpoint"),
			AzureDeployment:     viper.GetString("llm.azure_deployment"),
			AwsKey:              viper.GetString("llm.aws_key"),
			AwsSecret:           viper.GetString("llm.aws_secret"),
			AwsRegion:           viper.GetString("llm.aws_region"),
			AwsBedrockModelArn:  viper.GetString("llm.aws_bedrock_model_arn"),
			CloudflareAccountID: viper.GetString("llm.cloudflare_account_id"),
			CloudflareAPIToken:  viper.GetString("llm.cloudflare_api_token"),
			CloudflareAPIBase:   viper.GetString("llm.cloudflare_api_base"),
			Debug:               viper.GetBool("llm.debug"),
		})
	}
}
