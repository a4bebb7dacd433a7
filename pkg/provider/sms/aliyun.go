package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openapi "github.com/alibabacloud-go/darabonba-openapi/v2/client"
	openapiutil "github.com/alibabacloud-go/openapi-util/service"
	util "github.com/alibabacloud-go/tea-utils/v2/service"
	"github.com/alibabacloud-go/tea/tea"
	credential "github.com/aliyun/credentials-go/credentials"
	"go.uber.org/zap"

	"Mazraaty/config"
	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
	"Mazraaty/pkg/logger"
	"Mazraaty/pkg/provider"
	"Mazraaty/utils"
)

// AliyunAdapter sends SMS through the Aliyun Dysms OpenAPI. Credentials come
// from the SDK environment variables ALIBABA_CLOUD_ACCESS_KEY_ID /
// ALIBABA_CLOUD_ACCESS_KEY_SECRET.
type AliyunAdapter struct {
	client   *openapi.Client
	signName string
}

func NewAliyunAdapter() (*AliyunAdapter, error) {
	cred, err := credential.NewCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun credential: %w", err)
	}

	openapiConfig := &openapi.Config{
		Credential: cred,
		Endpoint:   tea.String("dysmsapi.aliyuncs.com"),
	}

	client, err := openapi.NewClient(openapiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create aliyun client: %w", err)
	}

	return &AliyunAdapter{
		client:   client,
		signName: config.Cfg.SMSSignName,
	}, nil
}

func (a *AliyunAdapter) Name() string {
	return "sms-aliyun"
}

func (a *AliyunAdapter) Send(ctx context.Context, msg *provider.Message) provider.Outcome {
	params := a.apiInfo("SendSms")

	templateParam, err := json.Marshal(map[string]string{"content": msg.Body})
	if err != nil {
		return provider.Outcome{ErrorKind: errors.KindInternal, Err: err}
	}

	queries := buildQueries(msg, a.signName, string(templateParam))

	runtime := &util.RuntimeOptions{}
	request := &openapi.OpenApiRequest{
		Query: openapiutil.Query(queries),
	}

	resp, err := a.client.CallApi(params, request, runtime)
	if err != nil {
		logger.EventError(ctx, "sms_provider_call_failed", err,
			zap.String("phone_hash", utils.HashPhone(msg.Endpoint)),
		)
		return provider.Outcome{ErrorKind: errors.KindProviderTimeout, Err: err}
	}

	return a.classify(ctx, resp, msg)
}

func (a *AliyunAdapter) apiInfo(action string) *openapi.Params {
	return &openapi.Params{
		Action:      tea.String(action),
		Version:     tea.String("2017-05-25"),
		Protocol:    tea.String("HTTPS"),
		Method:      tea.String("POST"),
		AuthType:    tea.String("AK"),
		Style:       tea.String("RPC"),
		Pathname:    tea.String("/"),
		ReqBodyType: tea.String("json"),
		BodyType:    tea.String("json"),
	}
}

func (a *AliyunAdapter) classify(ctx context.Context, resp map[string]interface{}, msg *provider.Message) provider.Outcome {
	if sc, ok := resp["statusCode"].(int); ok && sc != 200 {
		kind := errors.KindProviderError
		if sc == 429 {
			kind = errors.KindProviderThrottled
		}
		if sc == 401 || sc == 403 {
			kind = errors.KindProviderAuth
		}
		return provider.Outcome{
			ErrorKind: kind,
			Err:       fmt.Errorf("SMS API error: statusCode=%d", sc),
		}
	}

	outcome := provider.Outcome{}
	if resp["body"] == nil {
		outcome.Delivered = true
		return outcome
	}

	bodyBytes, err := json.Marshal(resp["body"])
	if err != nil {
		return provider.Outcome{ErrorKind: errors.KindProviderError, Err: err}
	}

	var bodyMap map[string]interface{}
	if err := json.Unmarshal(bodyBytes, &bodyMap); err != nil {
		return provider.Outcome{ErrorKind: errors.KindProviderError, Err: err}
	}

	if bizID, ok := bodyMap["BizId"].(string); ok {
		outcome.ProviderRef = bizID
	}

	code, _ := bodyMap["Code"].(string)
	if code == "" || code == "OK" {
		outcome.Delivered = true
		return outcome
	}

	message, _ := bodyMap["Message"].(string)
	outcome.ErrorKind = classifyAliyunCode(code)
	outcome.Err = fmt.Errorf("SMS send failed: %s - %s", code, message)

	logger.EventError(ctx, "sms_send_rejected", outcome.Err,
		zap.String("code", code),
		zap.String("phone_hash", utils.HashPhone(msg.Endpoint)),
	)
	return outcome
}

// buildQueries assembles the SendSms query parameters. OutId carries the
// attempt's idempotency key so a replayed attempt is traceable to the same
// outbound message in the Dysms console and delivery reports.
func buildQueries(msg *provider.Message, signName, templateParam string) map[string]interface{} {
	return map[string]interface{}{
		"PhoneNumbers":  tea.String(msg.Endpoint),
		"SignName":      tea.String(signName),
		"TemplateCode":  tea.String(templateCodeForKind(msg.Kind, msg.Locale)),
		"TemplateParam": tea.String(templateParam),
		"OutId":         tea.String(msg.IdempotencyKey()),
	}
}

// classifyAliyunCode maps documented Dysms business codes onto pipeline
// error kinds.
func classifyAliyunCode(code string) errors.ErrorKind {
	switch {
	case code == "isv.BUSINESS_LIMIT_CONTROL":
		return errors.KindProviderThrottled
	case code == "isv.MOBILE_NUMBER_ILLEGAL":
		return errors.KindEndpointInvalid
	case code == "isv.BLACK_KEY_CONTROL_LIMIT":
		return errors.KindRecipientBlocked
	case code == "isv.SMS_CONTENT_ILLEGAL":
		return errors.KindPayloadRejected
	case strings.HasPrefix(code, "isv.SMS_TEMPLATE") || strings.HasPrefix(code, "isv.SMS_SIGNATURE"):
		return errors.KindPayloadRejected
	case strings.HasPrefix(code, "isp."):
		return errors.KindProviderError
	default:
		return errors.KindProviderError
	}
}

// templateCodeForKind maps notification kinds to the Dysms template codes
// registered for the platform's sign name.
func templateCodeForKind(kind model.NotificationKind, locale model.Locale) string {
	suffix := "_AR"
	if locale == model.LocaleEn {
		suffix = "_EN"
	}
	return "SMS_MZR_" + strings.ToUpper(string(kind)) + suffix
}
