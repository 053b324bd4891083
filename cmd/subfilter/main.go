package main

import (
	"context"
	"fmt"
	"os"

	"subfilter/internal/shared/config"
	"subfilter/internal/shared/logger"
	"subfilter/subscription/pipeline"
)

func main() {
	cfgPath := config.Path()

	// 1. 加载 .ini 配置 (文件可选) 和环境变量中的密钥
	cfg, err := config.Load(cfgPath)
	if err != nil {
		// Use standard fmt before logger is initialized.
		fmt.Fprintf(os.Stderr, "Fatal: Failed to load config file '%s': %v\n", cfgPath, err)
		os.Exit(1)
	}

	// 1.1 初始化日志系统
	if err := logger.Init(cfg.LogConf); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 在任何网络请求之前校验配置
	if err := config.Validate(cfg); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	// 3. 组装并执行一次运行
	p, err := pipeline.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	res, err := p.Run(context.Background())
	if err != nil {
		logger.Fatal().Err(err).Msg("Run failed")
	}

	logger.Info().
		Str("run_id", res.RunID).
		Str("source", res.SourceURL).
		Msgf("Run finished: kept %d of %d proxies, saved to %d destination(s).", res.Stats.Kept, res.Stats.Total, len(res.Locations))
}
