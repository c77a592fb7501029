package models

// URLItem 表示边界队列中的一个URL项
// 用途:
//   - 在channel中传递URL和深度信息
//   - FIFO顺序保证广度优先遍历(并发模式下允许同层交错)
type URLItem struct {
	// URL 完整的URL字符串
	URL string

	// Depth URL的深度层级
	//   - 0: 种子URL
	//   - 1: 从种子页面发现的链接
	//   - 以此类推...
	Depth int

	// SourceURL 发现此URL的源页面(可选,用于调试)
	SourceURL string
}
