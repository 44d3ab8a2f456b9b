package messaging

// Markup renders the emphasis of reminder texts for one provider.
// Escape is applied to user-supplied text such as medication names.
type Markup interface {
	Bold(text string) string
	Italic(text string) string
	Escape(text string) string
}

// MarkupProvider is implemented by gateways whose markup differs from WhatsAppMarkup.
type MarkupProvider interface {
	Markup() Markup
}

// WhatsAppMarkup is WhatsApp's *bold* and _italic_. WhatsApp has no escaping;
// unbalanced markers in user text are shown as typed.
type WhatsAppMarkup struct{}

func (WhatsAppMarkup) Bold(text string) string   { return "*" + text + "*" }
func (WhatsAppMarkup) Italic(text string) string { return "_" + text + "_" }
func (WhatsAppMarkup) Escape(text string) string { return text }

// MarkupFor returns gw's markup, WhatsAppMarkup by default.
func MarkupFor(gw Gateway) Markup {
	if mp, ok := gw.(MarkupProvider); ok {
		if m := mp.Markup(); m != nil {
			return m
		}
	}
	return WhatsAppMarkup{}
}
