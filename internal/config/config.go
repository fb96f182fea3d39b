// 包 config 负责加载与校验应用配置（settings.yaml），
// 对外提供结构体 Config 及默认值/合法性校验。
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 仅保留当前需要的字段，避免过度设计。
type Config struct {
	API         API         `yaml:"API"`
	Options     Options     `yaml:"OPTIONS"`
	Export      Export      `yaml:"EXPORT"`
	Surveys     Surveys     `yaml:"SURVEYS"`
	Concurrency Concurrency `yaml:"CONCURRENCY"`
	Proxy       Proxy       `yaml:"PROXY"`
	LogLevel    string      `yaml:"LOG_LEVEL"`
	LogFormat   string      `yaml:"LOG_FORMAT"` // text|json|pretty
	LogLocale   string      `yaml:"LOG_LOCALE"` // zh-CN|en
	LogColor    string      `yaml:"LOG_COLOR"`  // auto|always|never
}

// API 描述厂商接口的访问参数。令牌不放配置文件，经 env/.env 提供。
type API struct {
	BaseURL        string `yaml:"base_url"`
	PageSize       int    `yaml:"page_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Retry          int    `yaml:"retry"`
	TokenEnv       string `yaml:"token_env"`
	EnvFile        string `yaml:"env_file"`
}

// Options 为一次导出的开关集合，与 JSON 工件的 metadata.options 保持同名。
type Options struct {
	IncludeUsers     bool `yaml:"include_users" json:"includeUsers"`
	IncludeSurveys   bool `yaml:"include_surveys" json:"includeSurveys"`
	IncludeCompanies bool `yaml:"include_companies" json:"includeCompanies"`
	MergeUserSurvey  bool `yaml:"merge_user_survey" json:"mergeUserSurvey"`
	MergeUserCompany bool `yaml:"merge_user_company" json:"mergeUserCompany"`
	MergeAllBySurvey bool `yaml:"merge_all_by_survey" json:"mergeAllBySurvey"`
	AnonymizeData    bool `yaml:"anonymize_data" json:"anonymizeData"`
	LimitRows        bool `yaml:"limit_rows" json:"limitRows"`
	IncludeGuide     bool `yaml:"include_guide" json:"includeGuide"`
	IncludePreview   bool `yaml:"include_preview" json:"includePreview"`
	IncludePDFReport bool `yaml:"include_pdf_report" json:"includePdfReport"`
	// 早期版本的同义开关，置真等价于 include_pdf_report
	GeneratePDFReport bool `yaml:"generate_pdf_report" json:"-"`
}

// Export 描述工件输出位置与格式。
type Export struct {
	OutDir  string   `yaml:"out_dir"`
	Formats []string `yaml:"formats"` // csv|json|sqlite
}

// Surveys 描述问卷抓取范围。IDs 为空表示全部问卷。
// 日期为 YYYY-MM-DD；LastSeenDays 控制用户列表的 last_seen 过滤窗口，0 表示不过滤。
type Surveys struct {
	IDs             []int64 `yaml:"ids"`
	StartDate       string  `yaml:"start_date"`
	EndDate         string  `yaml:"end_date"`
	LastSeenDays    int     `yaml:"last_seen_days"`
	SampleResponses bool    `yaml:"sample_responses"`
	WithAnalytics   bool    `yaml:"with_analytics"`
}

type Concurrency struct {
	Fetch int `yaml:"fetch"`
}

type Proxy struct {
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// Load 从文件读取 YAML 并反序列化为 Config，同时进行基础校验与默认值填充。
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Default 返回不依赖配置文件的可用配置（全部走默认值）。
func Default() *Config {
	c := &Config{}
	c.Options = Options{
		IncludeUsers:     true,
		IncludeSurveys:   true,
		IncludeCompanies: true,
		IncludeGuide:     true,
	}
	_ = c.Validate()
	return c
}

// Validate 负责合法性检查与默认值设置，避免在业务层分散判空逻辑。
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		c.API.BaseURL = "https://uapi.userguiding.com"
	}
	if c.API.PageSize <= 0 {
		c.API.PageSize = 100
	}
	if c.API.PageSize > 1000 {
		return errors.New("API.page_size must be <= 1000")
	}
	if c.API.TimeoutSeconds <= 0 {
		c.API.TimeoutSeconds = 25
	}
	if c.API.Retry < 0 {
		return errors.New("API.retry must be >= 0")
	}
	if c.API.TokenEnv == "" {
		c.API.TokenEnv = "UG_API_TOKEN"
	}
	if c.Export.OutDir == "" {
		c.Export.OutDir = "./export"
	}
	if len(c.Export.Formats) == 0 {
		c.Export.Formats = []string{"csv", "json"}
	}
	for _, f := range c.Export.Formats {
		switch f {
		case "csv", "json", "sqlite":
		default:
			return fmt.Errorf("unsupported export format: %s", f)
		}
	}
	if c.Surveys.LastSeenDays < 0 {
		return errors.New("SURVEYS.last_seen_days must be >= 0")
	}
	if c.Concurrency.Fetch <= 0 {
		c.Concurrency.Fetch = 4
	}
	if c.LogFormat == "" {
		c.LogFormat = "pretty"
	}
	if c.LogLocale == "" {
		c.LogLocale = "zh-CN"
	}
	if c.LogColor == "" {
		c.LogColor = "auto"
	}
	// 旧开关归一化：generate_pdf_report 与 include_pdf_report 等价
	if c.Options.GeneratePDFReport {
		c.Options.IncludePDFReport = true
	}
	return nil
}
