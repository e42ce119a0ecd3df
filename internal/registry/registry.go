package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSources []byte

// ErrNotFound 表示请求的 source id 不在注册表中
var ErrNotFound = errors.New("registry: source not found")

// Source 描述一个新闻源，加载后只读
type Source struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	URL      string `yaml:"url" json:"url"`
	Country  string `yaml:"country" json:"country"`
	Language string `yaml:"language" json:"language"`
	Category string `yaml:"category" json:"category"`
}

type file struct {
	Sources []Source `yaml:"sources"`
}

// Registry 是按固定顺序排列的新闻源表
type Registry struct {
	sources []Source
	index   map[string]int
}

// Load 从 path 读取 YAML 注册表；path 为空时使用内置默认列表
func Load(path string) (*Registry, error) {
	data := defaultSources
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("registry: read %s: %w", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse 解析 YAML 内容并校验 id/url
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("registry: parse yaml: %w", err)
	}
	return New(f.Sources)
}

// New 用给定顺序构建注册表，id 不可重复
func New(sources []Source) (*Registry, error) {
	r := &Registry{
		sources: make([]Source, 0, len(sources)),
		index:   make(map[string]int, len(sources)),
	}
	for i, s := range sources {
		s.ID = strings.TrimSpace(s.ID)
		s.URL = strings.TrimSpace(s.URL)
		if s.ID == "" {
			return nil, fmt.Errorf("registry: source #%d has empty id", i)
		}
		if s.URL == "" {
			return nil, fmt.Errorf("registry: source %q has empty url", s.ID)
		}
		if _, dup := r.index[s.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate source id %q", s.ID)
		}
		if s.Name == "" {
			s.Name = s.ID
		}
		r.index[s.ID] = len(r.sources)
		r.sources = append(r.sources, s)
	}
	return r, nil
}

// Sources 返回注册表顺序的副本
func (r *Registry) Sources() []Source {
	out := make([]Source, len(r.sources))
	copy(out, r.sources)
	return out
}

func (r *Registry) Lookup(id string) (Source, error) {
	i, ok := r.index[id]
	if !ok {
		return Source{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.sources[i], nil
}

func (r *Registry) Len() int {
	return len(r.sources)
}
