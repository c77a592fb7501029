package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MirrorCraft/sitemirror/internal/core"
	"github.com/MirrorCraft/sitemirror/internal/utils"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

// 命令行参数
var (
	// 全局参数
	configFile string
	verbose    bool
	logLevel   string

	// 镜像参数
	seedURL      string
	alias        string
	mode         string
	maxPages     int
	concurrency  int
	waitTime     int
	navTimeout   int
	pauseEvery   int
	pauseDelay   int
	headless     bool
	browserFlags []string
	outputDir    string
	archive      bool
)

var rootCmd = &cobra.Command{
	Use:   "sitemirror",
	Short: "网站离线镜像工具",
	Long: `SiteMirror - 网站离线镜像工具 (Go版本)

对单个站点做同站广度优先遍历,把页面、图片和样式表保存为
可离线浏览的本地副本,支持:
  • 浏览器渲染模式(捕获脚本渲染后的页面)
  • 静态抓取模式(不渲染,直接解析HTML)
  • 同站链接改写为本地相对路径
  • 页面预算和节流暂停
  • 完成后打包为zip归档

使用示例:
  # 默认浏览器模式,镜像25个页面
  sitemirror -u https://example.com

  # 静态模式,自定义预算和输出目录
  sitemirror -u https://example.com -m static --max-pages 100 -o snapshots

  # 自定义镜像名称和浏览器参数
  sitemirror -u https://example.com -a mysite --browser-flag no-sandbox

版本: ` + Version + `
构建时间: ` + BuildTime,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		logConfig := utils.LogConfig{
			Level:      config.Logging.Level,
			LogDir:     config.Logging.LogDir,
			MaxSize:    config.Logging.Rotation.MaxSize,
			MaxBackups: config.Logging.Rotation.MaxBackups,
			MaxAge:     config.Logging.Rotation.MaxAge,
			Compress:   config.Logging.Rotation.Compress,
		}

		// 命令行参数覆盖配置文件
		if logLevel != "" {
			logConfig.Level = logLevel
		}

		if err := utils.InitLogger(logConfig); err != nil {
			return fmt.Errorf("初始化日志系统失败: %w", err)
		}

		if verbose {
			utils.Info("详细模式已启用")
		}

		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if seedURL == "" {
			return cmd.Help()
		}

		config, err := core.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("加载配置失败: %w", err)
		}

		config.MergeCLIFlags(maxPages, concurrency, waitTime, navTimeout, pauseEvery, pauseDelay, browserFlags)
		if cmd.Flags().Changed("headless") {
			config.Crawl.Headless = headless
		}
		if cmd.Flags().Changed("output") {
			config.Output.BaseDir = outputDir
		}
		if cmd.Flags().Changed("archive") {
			config.Output.Archive = archive
		}

		normalized, err := NormalizeURL(seedURL)
		if err != nil {
			return fmt.Errorf("无效的种子URL: %w", err)
		}

		if err := ValidateFlags(normalized, mode, config); err != nil {
			return err
		}

		mirror, err := core.NewMirror(normalized, mode, alias, config)
		if err != nil {
			return fmt.Errorf("创建镜像任务失败: %w", err)
		}

		// 信号处理(Ctrl+C优雅退出)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			utils.Warnf("收到中断信号: %v", sig)
			mirror.Stop()
		}()

		if err := mirror.Run(); err != nil {
			return fmt.Errorf("镜像任务失败: %w", err)
		}

		// 显示统计结果
		stats := mirror.GetStats()
		fmt.Println("\n==================================================")
		fmt.Println("📊 镜像统计")
		fmt.Println("==================================================")
		fmt.Printf("✅ 访问页面数: %d\n", stats.VisitedPages)
		fmt.Printf("✅ 保存页面数: %d\n", stats.SavedPages)
		fmt.Printf("✅ 捕获图片数: %d\n", stats.Images)
		fmt.Printf("✅ 捕获样式表数: %d\n", stats.Stylesheets)
		fmt.Printf("❌ 失败页面数: %d\n", stats.FailedPages)
		fmt.Printf("📦 总大小: %.2f MB\n", float64(stats.TotalSize)/(1024*1024))
		fmt.Printf("⏱️  总耗时: %.2f秒\n", stats.Duration)
		fmt.Println("==================================================")
		fmt.Printf("镜像目录: %s\n", mirror.OutputDir())

		utils.Info("✨ 镜像任务完成!")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("SiteMirror %s\n", Version)
		fmt.Printf("构建时间: %s\n", BuildTime)
		fmt.Println("Go实现版本 - 网站离线镜像工具")
	},
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "配置文件路径")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "详细输出模式")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (trace|debug|info|warn|error)")

	// 镜像参数
	rootCmd.Flags().StringVarP(&seedURL, "url", "u", "", "种子URL (必需)")
	rootCmd.Flags().StringVarP(&alias, "alias", "a", "", "镜像名称(默认使用站点主机名)")
	rootCmd.Flags().StringVarP(&mode, "mode", "m", "browser", "镜像模式 (browser|static)")
	rootCmd.Flags().IntVar(&maxPages, "max-pages", 0, "页面预算(默认25)")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 0, "并发worker数(默认2)")
	rootCmd.Flags().IntVarP(&waitTime, "wait", "w", -1, "页面加载后额外等待时间(秒,默认2)")
	rootCmd.Flags().IntVar(&navTimeout, "timeout", 0, "单页导航超时(秒,默认30)")
	rootCmd.Flags().IntVar(&pauseEvery, "pause-every", -1, "每处理K个页面后暂停(默认5, 0=不暂停)")
	rootCmd.Flags().IntVar(&pauseDelay, "pause-delay", -1, "暂停时长(秒,默认2)")
	rootCmd.Flags().BoolVar(&headless, "headless", true, "无头浏览器模式")
	rootCmd.Flags().StringSliceVar(&browserFlags, "browser-flag", nil, "透传给浏览器的启动参数,可多次指定")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "mirrors", "镜像输出根目录")
	rootCmd.Flags().BoolVar(&archive, "archive", true, "完成后打包为zip归档")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
