package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - 数据摄入错误：DATA_INTEGRITY（评分越界/字段缺失，入库时丢弃）
//   - 服务错误：INVALID_INPUT（请求校验失败）、MODEL_NOT_READY（快照未就绪）
//   - 上游错误：UPSTREAM_TIMEOUT（好友动态/评分库超时，请求侧降级）
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_INPUT"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "engine", "model"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*DomainError)
	return ok
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	// 通用错误代码
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 请求校验失败
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误

	// 推荐链路错误代码
	ErrorCodeDataIntegrity    = "DATA_INTEGRITY"    // 评分观测越界/畸形，入库时丢弃
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA" // 用户/物品信号不足，触发兜底而非报错
	ErrorCodeUpstreamTimeout  = "UPSTREAM_TIMEOUT"  // 上游（好友动态/评分库）超时
	ErrorCodeModelNotReady    = "MODEL_NOT_READY"   // 首次训练完成前没有可用快照
)

// 模块名称常量
const (
	ModuleStore  = "store"  // 存储模块
	ModuleModel  = "model"  // 离线训练/快照模块
	ModuleEngine = "engine" // 推荐编排模块
	ModuleSocial = "social" // 好友信号模块
	ModuleMeta   = "meta"   // 物品元数据模块
	ModuleIngest = "ingest" // 评分摄入模块
)

// 通用错误检查函数

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	return hasCode(err, ErrorCodeNotFound)
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	return hasCode(err, ErrorCodeNotSupported)
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	return hasCode(err, ErrorCodeUnavailable)
}

// IsInvalidInput 检查错误是否为请求校验失败
func IsInvalidInput(err error) bool {
	return hasCode(err, ErrorCodeInvalidInput)
}

// IsDataIntegrity 检查错误是否为数据完整性错误
func IsDataIntegrity(err error) bool {
	return hasCode(err, ErrorCodeDataIntegrity)
}

// IsInsufficientData 检查错误是否为信号不足
func IsInsufficientData(err error) bool {
	return hasCode(err, ErrorCodeInsufficientData)
}

// IsUpstreamTimeout 检查错误是否为上游超时
func IsUpstreamTimeout(err error) bool {
	return hasCode(err, ErrorCodeUpstreamTimeout)
}

// IsModelNotReady 检查错误是否为快照未就绪
func IsModelNotReady(err error) bool {
	return hasCode(err, ErrorCodeModelNotReady)
}

func hasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == code
	}
	return false
}
