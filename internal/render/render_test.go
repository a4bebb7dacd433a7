package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
)

func weatherTemplate() *model.Template {
	return &model.Template{
		TemplateID:     "weather_frost",
		Kind:           model.KindWeatherAlert,
		SubjectAr:      "تحذير صقيع في {governorate}",
		SubjectEn:      "Frost warning in {governorate}",
		BodyAr:         "درجة الحرارة ستنخفض إلى {temp} الليلة. غطِ محصول {crop}.",
		BodyEn:         "Temperature will drop to {temp} tonight. Cover your {crop}.",
		RequiredParams: model.StringList{"governorate", "temp", "crop"},
		Channels:       model.ChannelList{model.ChannelSMS, model.ChannelPush},
	}
}

func TestRenderArabic(t *testing.T) {
	params := map[string]string{
		"governorate": "المنيا",
		"temp":        "2°C",
		"crop":        "الطماطم",
	}

	got, err := Render(weatherTemplate(), model.ChannelSMS, model.LocaleAr, params)
	require.NoError(t, err)

	assert.Equal(t, "تحذير صقيع في المنيا", got.Subject)
	assert.Contains(t, got.Body, "2°C")
	assert.Contains(t, got.Body, "الطماطم")
	assert.NotContains(t, got.Body, "{", "no unexpanded placeholders")
	assert.Equal(t, model.LocaleAr, got.Locale)
}

func TestRenderEnglish(t *testing.T) {
	params := map[string]string{
		"governorate": "Minya",
		"temp":        "2C",
		"crop":        "tomatoes",
	}

	got, err := Render(weatherTemplate(), model.ChannelPush, model.LocaleEn, params)
	require.NoError(t, err)

	assert.Equal(t, "Frost warning in Minya", got.Subject)
	assert.Equal(t, "Temperature will drop to 2C tonight. Cover your tomatoes.", got.Body)
}

func TestRenderDeterministic(t *testing.T) {
	params := map[string]string{"governorate": "Giza", "temp": "3C", "crop": "wheat"}

	a, err := Render(weatherTemplate(), model.ChannelSMS, model.LocaleEn, params)
	require.NoError(t, err)
	b, err := Render(weatherTemplate(), model.ChannelSMS, model.LocaleEn, params)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestRenderMissingRequiredParam(t *testing.T) {
	params := map[string]string{"governorate": "Giza", "temp": "3C"}

	_, err := Render(weatherTemplate(), model.ChannelSMS, model.LocaleEn, params)
	require.Error(t, err)
	assert.Equal(t, errors.KindTemplateParameterMissing, errors.KindOf(err))
}

func TestRenderUndeclaredPlaceholderStillFails(t *testing.T) {
	tmpl := weatherTemplate()
	tmpl.RequiredParams = model.StringList{"governorate"}

	// required list is incomplete but the body still references {temp}
	params := map[string]string{"governorate": "Giza", "crop": "wheat"}
	_, err := Render(tmpl, model.ChannelSMS, model.LocaleEn, params)
	require.Error(t, err)
	assert.Equal(t, errors.KindTemplateParameterMissing, errors.KindOf(err))
}

func TestRenderUnsupportedChannel(t *testing.T) {
	params := map[string]string{"governorate": "Giza", "temp": "3C", "crop": "wheat"}

	_, err := Render(weatherTemplate(), model.ChannelEmail, model.LocaleEn, params)
	require.Error(t, err)
	assert.Equal(t, errors.KindTemplateChannelUnsupported, errors.KindOf(err))
}

func TestRenderExtraParamsIgnored(t *testing.T) {
	params := map[string]string{
		"governorate": "Giza", "temp": "3C", "crop": "wheat",
		"unused": "whatever",
	}

	got, err := Render(weatherTemplate(), model.ChannelSMS, model.LocaleEn, params)
	require.NoError(t, err)
	assert.NotContains(t, got.Body, "whatever")
}
