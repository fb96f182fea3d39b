// 命令行入口：
// - 解析 flags 与 settings.yaml/rules.yaml
// - 初始化日志与 HTTP 客户端，解析会话令牌
// - 运行导出流水线并以退出码反映结果
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"go-userguiding-export/internal/auth"
	"go-userguiding-export/internal/config"
	"go-userguiding-export/internal/fetch"
	"go-userguiding-export/internal/logx"
	"go-userguiding-export/internal/pipeline"
	"go-userguiding-export/internal/rules"
	"go-userguiding-export/internal/ugapi"
)

func main() {
	var (
		configPath = flag.String("config", "settings.yaml", "path to settings.yaml")
		rulesPath  = flag.String("rules", "rules.yaml", "path to rules.yaml (optional)")
		outDir     = flag.String("out", "", "override EXPORT.out_dir")
		token      = flag.String("token", "", "api token (overrides env/.env)")
	)
	flag.Parse()

	// 1) 加载配置与规则；settings.yaml 缺省存在性可选，缺失时走默认值
	var cfg *config.Config
	if _, statErr := os.Stat(*configPath); statErr == nil {
		c, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = c
	} else {
		cfg = config.Default()
	}
	if *outDir != "" {
		cfg.Export.OutDir = *outDir
	}
	var rl *rules.Rules
	if *rulesPath != "" {
		if r, err := rules.Load(*rulesPath); err == nil {
			rl = r
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Printf("load rules failed: %v", err)
		}
	}

	// 2) 初始化日志：级别/格式/语言/颜色
	logx.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogLocale, cfg.LogColor)

	// 3) 解析令牌；没有令牌整个导出无从谈起
	tok, err := auth.ResolveToken(*token, cfg.API.TokenEnv, cfg.API.EnvFile)
	if err != nil {
		logx.Errorf("令牌解析失败：%v", err)
		os.Exit(1)
	}
	if auth.Expired(tok, time.Now()) {
		logx.Warnf("令牌疑似已过期，请求可能收到 401")
	}

	// 4) 初始化 HTTP 客户端（含代理与重试）
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		Retry:      cfg.API.Retry,
	})
	if err != nil {
		log.Fatalf("http client: %v", err)
	}
	api := ugapi.New(cl, cfg.API.BaseURL, tok, cfg.Concurrency.Fetch)

	// 5) 运行导出流水线
	run := pipeline.New(cfg, rl, api)
	logx.Infof("开始导出：输出目录=%s 格式=%v", cfg.Export.OutDir, cfg.Export.Formats)
	res := run.Run(context.Background())
	if res.Status != "success" {
		logx.Errorf("运行失败：%s", res.Message)
		os.Exit(1)
	}
	logx.Infof("%s（耗时 %s）", res.Message, res.Duration.Round(time.Millisecond))
	for _, f := range res.Files {
		logx.Infof("已产出 %s", f)
	}
}
