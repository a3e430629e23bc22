package store

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.Store 和 core.KeyValueStore 接口。
//
// 示例：
//   var s core.Store = NewMemoryStore()
//   var kv core.KeyValueStore = NewMemoryStore()
//
// 键约定（各模块共享同一个存储实例时避免冲突）：
//   model:sims:v1          相似度表缓存（JSON，重启免重训）
//   meta:items             物品元数据表（JSON 数组）
//   pop:items              运营热门榜单（有序集合，member=item_id）
//   social:friends:<uid>   好友列表（JSON []int64）
//   social:ratings:<fid>   好友评分（Hash，field=item_id value=rating）
