package render

import (
	"fmt"
	"regexp"
	"strings"

	"Mazraaty/internal/model"
	"Mazraaty/pkg/errors"
)

// Rendered is the channel-ready output of a template for one recipient.
type Rendered struct {
	Subject string
	Body    string
	Locale  model.Locale
}

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z0-9_]+)\}`)

// Render expands a template for one recipient's locale and channel. Rendering
// is pure: same template, parameters, locale and channel always produce the
// same output.
func Render(tmpl *model.Template, channel model.Channel, locale model.Locale, params map[string]string) (*Rendered, error) {
	if !tmpl.SupportsChannel(channel) {
		return nil, errors.Classified(errors.KindTemplateChannelUnsupported,
			fmt.Errorf("template %s does not support channel %s", tmpl.TemplateID, channel))
	}

	for _, required := range tmpl.RequiredParams {
		if _, ok := params[required]; !ok {
			return nil, errors.Classified(errors.KindTemplateParameterMissing,
				fmt.Errorf("template %s missing parameter %q", tmpl.TemplateID, required))
		}
	}

	subject, err := substitute(tmpl.Subject().Pick(locale), params, tmpl.TemplateID)
	if err != nil {
		return nil, err
	}
	body, err := substitute(tmpl.Body().Pick(locale), params, tmpl.TemplateID)
	if err != nil {
		return nil, err
	}

	return &Rendered{
		Subject: subject,
		Body:    body,
		Locale:  locale,
	}, nil
}

// substitute replaces every {name} placeholder. A placeholder with no
// matching parameter fails the render even if it was not declared required;
// sending text with a raw "{name}" hole to a farmer is worse than failing.
func substitute(text string, params map[string]string, templateID string) (string, error) {
	var missing []string

	out := placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1 : len(match)-1]
		if val, ok := params[name]; ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", errors.Classified(errors.KindTemplateParameterMissing,
			fmt.Errorf("template %s references undefined parameters: %s",
				templateID, strings.Join(missing, ", ")))
	}
	return out, nil
}
