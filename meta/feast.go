package meta

import (
	"context"
	"fmt"

	feastsdk "github.com/feast-dev/feast/sdk/go"

	"github.com/rushteam/movierec/core"
)

// FeastLoader 从 Feast Feature Store 在线读取物品元数据特征。
//
// 特征约定（feature view: movie_meta）：
//   - movie_meta:title  string
//   - movie_meta:genres string，"A|B|C" 形式
//
// 实体 key 为 movie_id。Feast 不可用时由 ChainLoader 落到 Store 兜底。
type FeastLoader struct {
	client  *feastsdk.GrpcClient
	Project string
}

// NewFeastLoader 连接 Feast Feature Server（gRPC，默认端口 6565）。
func NewFeastLoader(host string, port int, project string) (*FeastLoader, error) {
	if port == 0 {
		port = 6565
	}
	client, err := feastsdk.NewGrpcClient(host, port)
	if err != nil {
		return nil, fmt.Errorf("feast grpc client: %w", err)
	}
	return &FeastLoader{client: client, Project: project}, nil
}

func (l *FeastLoader) Name() string { return "meta.feast" }

const (
	featureTitle  = "movie_meta:title"
	featureGenres = "movie_meta:genres"
)

func (l *FeastLoader) Load(ctx context.Context, ids []int64) (map[int64]ItemMeta, error) {
	if len(ids) == 0 {
		return map[int64]ItemMeta{}, nil
	}

	entityRows := make([]feastsdk.Row, len(ids))
	for i, id := range ids {
		entityRows[i] = feastsdk.Row{"movie_id": feastsdk.Int64Val(id)}
	}

	resp, err := l.client.GetOnlineFeatures(ctx, &feastsdk.OnlineFeaturesRequest{
		Features: []string{featureTitle, featureGenres},
		Entities: entityRows,
		Project:  l.Project,
	})
	if err != nil {
		return nil, core.NewDomainError(core.ModuleMeta, core.ErrorCodeUpstreamTimeout,
			"meta: feast online features failed: "+err.Error())
	}

	rows := resp.Rows()
	if len(rows) != len(ids) {
		return nil, core.NewDomainError(core.ModuleMeta, core.ErrorCodeDataIntegrity,
			fmt.Sprintf("meta: feast row count mismatch: expected %d, got %d", len(ids), len(rows)))
	}

	out := make(map[int64]ItemMeta, len(ids))
	for i, row := range rows {
		m := ItemMeta{ID: ids[i]}
		m.Title = stringFeature(row, featureTitle)
		m.Genres = ParseGenres(stringFeature(row, featureGenres))
		if m.Title == "" && len(m.Genres) == 0 {
			continue // 该物品没有注册特征
		}
		out[ids[i]] = m
	}
	return out, nil
}

// Close 释放客户端连接。
func (l *FeastLoader) Close() error {
	l.client = nil
	return nil
}

// stringFeature 从响应行提取字符串特征。
// SDK 的 Row 是 map[string]*types.Value；这里沿用宽松提取：
// 非字符串类型统一格式化为字符串，空值返回 ""。
func stringFeature(row feastsdk.Row, name string) string {
	val, ok := row[name]
	if !ok || val == nil {
		return ""
	}
	if s := val.GetStringVal(); s != "" {
		return s
	}
	return ""
}
