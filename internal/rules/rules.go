// 包 rules 负责加载字段规则（rules.yaml）：
// - 导出时各数据集的列排除清单
// - 全量合并表的用户画像/活动计数/公司字段白名单
// - 匿名化的字段清单与哨兵串
// 这些清单在不同团队间有分歧，按配置处理而非写死在代码里。
package rules

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Rules 为全部字段规则。零值经 Validate 填充默认值后即可用。
type Rules struct {
	Exclude  map[string][]string `yaml:"exclude"` // 数据集名 → 导出时排除的列
	MergeAll MergeAll            `yaml:"merge_all"`
	Redact   Redact              `yaml:"redact"`
}

// MergeAll 描述全量合并表（按问卷分组）的字段白名单。
type MergeAll struct {
	UserFields    []string `yaml:"user_fields"`    // 用户画像/设备字段，原名保留
	UserCounters  []string `yaml:"user_counters"`  // 活动计数，加 user_ 前缀
	CompanyFields []string `yaml:"company_fields"` // 公司字段，加 company_ 前缀
}

// Redact 描述匿名化的字段清单。
type Redact struct {
	Sentinel      string   `yaml:"sentinel"`
	UserFields    []string `yaml:"user_fields"`
	CompanyFields []string `yaml:"company_fields"`
}

// Load 从文件加载 YAML 规则并填充默认值。
func Load(path string) (*Rules, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rules %s: %w", path, err)
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	var r Rules
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("unmarshal rules %s: %w", path, err)
	}
	r.Validate()
	return &r, nil
}

// Default 返回内置默认规则。
func Default() *Rules {
	r := &Rules{}
	r.Validate()
	return r
}

// Validate 填充默认清单；显式配置过的清单不动。
func (r *Rules) Validate() {
	if r.Exclude == nil {
		r.Exclude = map[string][]string{}
	}
	if len(r.MergeAll.UserFields) == 0 {
		r.MergeAll.UserFields = []string{
			"user_id", "email", "name", "created", "last_seen",
			"device_type", "browser", "browser_version", "os",
			"country", "language", "company_id",
		}
	}
	if len(r.MergeAll.UserCounters) == 0 {
		r.MergeAll.UserCounters = []string{
			"web_session", "guides_seen", "guides_completed",
			"checklists_seen", "hotspots_seen",
		}
	}
	if len(r.MergeAll.CompanyFields) == 0 {
		r.MergeAll.CompanyFields = []string{"name", "size", "user_count"}
	}
	if r.Redact.Sentinel == "" {
		r.Redact.Sentinel = "[REDACTED]"
	}
	if len(r.Redact.UserFields) == 0 {
		r.Redact.UserFields = []string{"name", "first_name", "last_name", "phone", "address"}
	}
	if len(r.Redact.CompanyFields) == 0 {
		r.Redact.CompanyFields = []string{"email", "phone", "address", "contact_person"}
	}
}

// Excluded 判断某数据集导出时是否排除该列。
func (r *Rules) Excluded(dataset, column string) bool {
	for _, c := range r.Exclude[dataset] {
		if c == column {
			return true
		}
	}
	return false
}
