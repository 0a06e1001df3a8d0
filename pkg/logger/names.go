package logger

const (
	Main       = "main"
	HAL        = "hal"
	BCM        = "bcm"
	SAI        = "sai"
	SDK        = "sdk"
	Stats      = "stats"
	Mirror     = "mirror"
	Linkscan   = "linkscan"
	Hostif     = "hostif"
	Warmboot   = "warmboot"
	QSFP       = "qsfp"
	Platform   = "platform"
	Events     = "events"
	Monitor    = "monitor"
	Config     = "confmgr"
	Northbound = "nb"
	Opdb       = "opdb"
)

const (
	ComponentMain     = "main"
	ComponentHAL      = "hald"
	ComponentMonitor  = "mond"
	ComponentLinkscan = "linkd"
	ComponentConfig   = "configd"
)
