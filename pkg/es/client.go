// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"prima-facie-go/internal/ai/tools"
	"prima-facie-go/internal/config"
	"prima-facie-go/pkg/log"
)

// Searcher runs tenant-filtered full-text queries over the documents index.
// It implements tools.DocumentSearcher.
type Searcher struct {
	client *elasticsearch.Client
	index  string
}

// NewSearcher 初始化 Elasticsearch 客户端。
func NewSearcher(cfg config.ElasticsearchConfig) (*Searcher, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: strings.Split(cfg.Addresses, ","),
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	return &Searcher{client: client, index: cfg.IndexName}, nil
}

const documentsMapping = `{
	"mappings": {
		"properties": {
			"document_id": { "type": "keyword" },
			"law_firm_id": { "type": "keyword" },
			"matter_id": { "type": "keyword" },
			"name": { "type": "text", "analyzer": "portuguese" },
			"content": { "type": "text", "analyzer": "portuguese" }
		}
	}
}`

// EnsureIndex 检查索引是否存在，如果不存在则创建它
func (s *Searcher) EnsureIndex(ctx context.Context) error {
	res, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("检查索引是否存在时出错: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", s.index)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	res, err = s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithBody(strings.NewReader(documentsMapping)),
		s.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("创建索引 '%s' 失败: %w", s.index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("创建索引时 Elasticsearch 返回错误: %s", res.String())
	}
	log.Infof("索引 '%s' 创建成功", s.index)
	return nil
}

// IndexedDocument is the indexed form of one stored document.
type IndexedDocument struct {
	DocumentID string `json:"document_id"`
	LawFirmID  string `json:"law_firm_id"`
	MatterID   string `json:"matter_id,omitempty"`
	Name       string `json:"name"`
	Content    string `json:"content,omitempty"`
}

// IndexDocument 将单个文档索引到 Elasticsearch。
func (s *Searcher) IndexDocument(ctx context.Context, doc IndexedDocument) error {
	if doc.LawFirmID == "" {
		return errors.New("indexed document requires law_firm_id")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: doc.DocumentID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
	}
	return nil
}

// SearchDocuments matches query against name and content. The law_firm_id
// term filter is always applied.
func (s *Searcher) SearchDocuments(ctx context.Context, lawFirmID, query string, limit int) ([]tools.DocumentHit, error) {
	if lawFirmID == "" {
		return nil, errors.New("search requires a tenant")
	}
	body, err := json.Marshal(searchBody(lawFirmID, query, limit))
	if err != nil {
		return nil, err
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("搜索请求失败: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("Elasticsearch 返回错误: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("解析搜索结果失败: %w", err)
	}
	hits := make([]tools.DocumentHit, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		if h.Source.LawFirmID != lawFirmID {
			continue
		}
		hit := tools.DocumentHit{
			DocumentID: h.Source.DocumentID,
			MatterID:   h.Source.MatterID,
			Name:       h.Source.Name,
			Score:      h.Score,
		}
		if len(h.Highlight.Content) > 0 {
			hit.Snippet = h.Highlight.Content[0]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func searchBody(lawFirmID, query string, limit int) map[string]any {
	return map[string]any{
		"size": limit,
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  query,
						"fields": []string{"name^2", "content"},
					},
				},
				"filter": []any{
					map[string]any{"term": map[string]any{"law_firm_id": lawFirmID}},
				},
			},
		},
		"_source": []string{"document_id", "law_firm_id", "matter_id", "name"},
		"highlight": map[string]any{
			"fields": map[string]any{
				"content": map[string]any{"fragment_size": 160, "number_of_fragments": 1},
			},
		},
	}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Score     float64         `json:"_score"`
			Source    IndexedDocument `json:"_source"`
			Highlight struct {
				Content []string `json:"content"`
			} `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}
