package dialogue

// Topic is the closed set of appointment subjects an advisor session can be
// booked for. A session picks its topic once during topic collection.
type Topic string

const (
	TopicUnknown        Topic = ""
	TopicOnboarding     Topic = "onboarding_kyc"
	TopicMandates       Topic = "recurring_investments"
	TopicStatements     Topic = "statements_tax"
	TopicWithdrawals    Topic = "withdrawals"
	TopicAccountChanges Topic = "account_changes"
)

// topicOrder fixes the 1-5 numbering used in menus and ordinal replies.
var topicOrder = []Topic{
	TopicOnboarding,
	TopicMandates,
	TopicStatements,
	TopicWithdrawals,
	TopicAccountChanges,
}

var topicLabels = map[Topic]string{
	TopicOnboarding:     "Onboarding & KYC",
	TopicMandates:       "Recurring investment mandates",
	TopicStatements:     "Statements & tax documents",
	TopicWithdrawals:    "Withdrawals & timelines",
	TopicAccountChanges: "Account & nominee changes",
}

// Label returns the customer-facing name of the topic.
func (t Topic) Label() string {
	if label, ok := topicLabels[t]; ok {
		return label
	}
	return "General advisory"
}

// Valid reports whether t is one of the five bookable topics.
func (t Topic) Valid() bool {
	_, ok := topicLabels[t]
	return ok
}
