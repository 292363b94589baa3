package core

import glog "github.com/goliatone/go-logger/glog"

var (
	_ CommunityStore  = (*Service)(nil)
	_ CommunityReader = (*Service)(nil)
	_ CommunityStore  = (*MemoryCommunityStore)(nil)
	_ CommunityReader = (*MemoryCommunityStore)(nil)
	_ MetricsRecorder = NopMetricsRecorder{}
	_ ConfigProvider  = (*CfgxConfigProvider)(nil)
	_ RawConfigLoader = EnvConfigLoader{}
	_ OptionsResolver = GoOptionsResolver{}

	_ Logger         = glog.Nop()
	_ LoggerProvider = glog.ProviderFromLogger(glog.Nop())
)
