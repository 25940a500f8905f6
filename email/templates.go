package email

// Template keys. Queued rows store these as plain strings, so renaming one
// requires a data migration.
const (
	TemplateWelcome               = "WELCOME"
	TemplateStartJourney          = "START_JOURNEY"
	TemplateAbandonment1          = "ABANDONMENT_1"
	TemplateAbandonment2          = "ABANDONMENT_2"
	TemplateAbandonment3          = "ABANDONMENT_3"
	TemplateModuleComplete        = "MODULE_COMPLETE"
	TemplateCourseComplete        = "COURSE_COMPLETE"
	TemplatePaymentFailed         = "PAYMENT_FAILED"
	TemplatePaymentFailedFinal    = "PAYMENT_FAILED_FINAL"
	TemplateSubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
	TemplateInactiveNudge         = "INACTIVE_NUDGE"
	TemplateRenewalReminder       = "RENEWAL_REMINDER"
)

// AbandonmentPrefix marks the marketing sequence that is superseded once the
// user subscribes; the queue processor cancels pending entries with this
// prefix for ACTIVE subscribers.
const AbandonmentPrefix = "ABANDONMENT"

// Template is a lifecycle email definition. Subject and body support
// {{variable}} substitution.
type Template struct {
	Key         string
	Subject     string
	Text        string
	IsMarketing bool // marketing templates respect the opt-out flag
}

var templates = map[string]Template{
	TemplateWelcome: {
		Key:     TemplateWelcome,
		Subject: "Welcome to AI Systems Architect, {{name}}!",
		Text: `Hi {{name}},

Welcome aboard! Your account is ready.

Start with your first lesson here: {{firstLessonUrl}}

See you inside,
The AI Systems Architect team`,
	},
	TemplateStartJourney: {
		Key:         TemplateStartJourney,
		Subject:     "Ready to start your journey, {{name}}?",
		IsMarketing: true,
		Text: `Hi {{name}},

You signed up yesterday but haven't started the first lesson yet. It takes
less than 15 minutes and it's free.

Jump in: {{firstLessonUrl}}`,
	},
	TemplateAbandonment1: {
		Key:         TemplateAbandonment1,
		Subject:     "You're making great progress, {{name}}!",
		IsMarketing: true,
		Text: `Hi {{name}},

You finished the free lesson - nice work. The rest of the course picks up
right where it left off.

Unlock everything: {{pricingUrl}}`,
	},
	TemplateAbandonment2: {
		Key:         TemplateAbandonment2,
		Subject:     "Quick question about the course",
		IsMarketing: true,
		Text: `Hi {{name}},

Was anything unclear in the first lesson? Reply to this email and we'll help.

When you're ready: {{pricingUrl}}`,
	},
	TemplateAbandonment3: {
		Key:         TemplateAbandonment3,
		Subject:     "Last call: your spot is waiting",
		IsMarketing: true,
		Text: `Hi {{name}},

This is the last nudge, promise. The full course is waiting whenever you
want it.

{{pricingUrl}}`,
	},
	TemplateModuleComplete: {
		Key:     TemplateModuleComplete,
		Subject: "Module {{moduleNumber}} complete!",
		Text: `Hi {{name}},

You just finished Module {{moduleNumber}}: {{moduleTitle}}. You're at
{{progressPercentage}}% of the course.

Up next - Module {{nextModuleNumber}}: {{nextModuleUrl}}`,
	},
	TemplateCourseComplete: {
		Key:     TemplateCourseComplete,
		Subject: "You did it! Course complete",
		Text: `Hi {{name}},

That's every lesson done - {{lessonsCompleted}} in total. Congratulations.

Grab your certificate: {{certificateUrl}}`,
	},
	TemplatePaymentFailed: {
		Key:     TemplatePaymentFailed,
		Subject: "Action needed: payment failed",
		Text: `Hi {{name}},

Your latest payment didn't go through. Your access continues for now, but
please update your payment method: {{updatePaymentUrl}}`,
	},
	TemplatePaymentFailedFinal: {
		Key:     TemplatePaymentFailedFinal,
		Subject: "Final notice: your access will be paused",
		Text: `Hi {{name}},

We still couldn't collect your payment. Unless your payment method is
updated, access will be paused: {{updatePaymentUrl}}`,
	},
	TemplateSubscriptionCancelled: {
		Key:     TemplateSubscriptionCancelled,
		Subject: "Your subscription has been cancelled",
		Text: `Hi {{name}},

Your subscription is cancelled. You keep access until {{accessEndDate}}.

Changed your mind? {{resubscribeUrl}}`,
	},
	TemplateInactiveNudge: {
		Key:         TemplateInactiveNudge,
		Subject:     "Haven't seen you in a while, {{name}}",
		IsMarketing: true,
		Text: `Hi {{name}},

Your last completed lesson was "{{lastLesson}}". Next up: "{{nextLesson}}".

Pick up where you left off: {{resumeUrl}}`,
	},
	TemplateRenewalReminder: {
		Key:     TemplateRenewalReminder,
		Subject: "Your subscription renews in 3 days",
		Text: `Hi {{name}},

Your subscription renews on {{renewalDate}} for {{amount}}. You've completed
{{progressPercentage}}% of the course so far.

Manage billing: {{billingUrl}}`,
	},
}

// GetTemplate looks up a template by key; ok is false for unknown keys.
func GetTemplate(key string) (Template, bool) {
	t, ok := templates[key]
	return t, ok
}
