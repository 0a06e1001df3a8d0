package events

const (
	TopicPortLink      = "osvswitch:events:port:link"
	TopicConfigApplied = "osvswitch:events:config:applied"
	TopicBoot          = "osvswitch:events:system:boot"
	TopicMirrorState   = "osvswitch:events:mirror:state"
)
