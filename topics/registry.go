package topics

import (
	"sort"
	"strings"
)

// Topic is a dot-delimited event name used as the routing key on the topic
// exchange, e.g. "order.created". The full set is fixed at build time.
type Topic string

func (t Topic) String() string { return string(t) }

// Domain returns the leading segment of the topic name.
func (t Topic) Domain() string {
	name := string(t)
	if i := strings.IndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return name
}

// Permitted topics, grouped by domain.
const (
	UserCreated Topic = "user.created"
	UserUpdated Topic = "user.updated"
	UserDeleted Topic = "user.deleted"

	OrderCreated   Topic = "order.created"
	OrderUpdated   Topic = "order.updated"
	OrderCancelled Topic = "order.cancelled"
	OrderCompleted Topic = "order.completed"

	NotificationEmail Topic = "notification.email"
	NotificationSMS   Topic = "notification.sms"
	NotificationPush  Topic = "notification.push"

	SystemErrorLogged Topic = "system.error.logged"
)

// catalog is the nested domain -> event -> topic structure the registry is
// flattened from.
var catalog = map[string][]Topic{
	"user":         {UserCreated, UserUpdated, UserDeleted},
	"order":        {OrderCreated, OrderUpdated, OrderCancelled, OrderCompleted},
	"notification": {NotificationEmail, NotificationSMS, NotificationPush},
	"system":       {SystemErrorLogged},
}

// Registry is the sole source of truth for which topics may be published.
// It is built once and never mutated afterwards.
type Registry struct {
	members map[Topic]struct{}
}

// NewRegistry builds the registry from the built-in catalog.
func NewRegistry() *Registry {
	members := make(map[Topic]struct{})
	for _, group := range catalog {
		for _, t := range group {
			members[t] = struct{}{}
		}
	}
	return &Registry{members: members}
}

// IsValid reports whether the given topic is part of the permitted taxonomy.
// It is pure: no side effects, no I/O.
func (r *Registry) IsValid(topic string) bool {
	_, ok := r.members[Topic(topic)]
	return ok
}

// All returns every permitted topic in lexical order.
func (r *Registry) All() []Topic {
	all := make([]Topic, 0, len(r.members))
	for t := range r.members {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}

// Domains returns the domain groups of the taxonomy in lexical order.
func (r *Registry) Domains() []string {
	domains := make([]string, 0, len(catalog))
	for d := range catalog {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// ByDomain returns the topics belonging to one domain group, or nil when the
// domain is unknown.
func (r *Registry) ByDomain(domain string) []Topic {
	group, ok := catalog[domain]
	if !ok {
		return nil
	}
	out := make([]Topic, len(group))
	copy(out, group)
	return out
}
