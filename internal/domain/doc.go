// Package domain models the sea conditions at a coordinate in Korean waters,
// assembled from three public data sources on data.go.kr.
//
// # Data Sources
//
// Weather comes from the Korea Meteorological Administration (KMA) village
// forecast service (VilageFcstInfoService_2.0), which offers three products
// indexed by the same 5 km Lambert conformal grid:
//
//	getVilageFcst     short-range forecast, issued 8 times a day
//	getUltraSrtNcst   ultra-short-range nowcast (an observation), every 30 minutes
//	getUltraSrtFcst   ultra-short-range forecast, 6 hours ahead, every 30 minutes
//
// Tide and buoy data come from the Korea Hydrographic and Oceanographic Agency
// (KHOA): tideFcstHghLw returns predicted high/low water by station code and
// date, twRecent returns the latest real-time buoy observation by station code.
//
// # KMA Conventions
//
// Grid: the forecast grid is 149 x 253 cells of 5 km. [Project] converts WGS-84
// coordinates to (nx, ny); cells outside 1..149 x 1..253 are not served.
//
// Base times (KST, UTC+9):
//
//	short-range: 0200 0500 0800 1100 1400 1700 2000 2300, available 10 minutes
//	             after issue. Before 02:10 the previous day's 2300 run is used.
//	ultra-short: HH00 or HH30, the half hour the current minute falls in.
//
// Categories used:
//
//	TMP  hourly temperature (°C), short-range only
//	T1H  temperature (°C), ultra-short products
//	SKY  1 clear | 3 mostly cloudy | 4 overcast
//	PTY  0 none | 1 rain | 2 rain/snow | 3 snow | 4 shower | 5 drizzle
//	     | 6 drizzle/snow | 7 snow flurry
//	WSD  wind speed (m/s)
//
// Missing values: the ultra-short products report gaps as large negative
// numbers (-999, -998.9). Anything at or below [MissingThreshold] is absent.
//
// # KHOA Conventions
//
// Tide events carry extrSe: 1 and 3 are high water, 2 and 4 low water. Older
// response variants name the fields tph_time / tph_level / hl_code instead of
// predcDt / predcTdlvVl / extrSe, and some stations return an unlabeled
// minute series, which [ExtractExtrema] reduces to highs and lows.
//
// Both KHOA services answer in JSON or XML depending on the station and the
// day; the adapters normalize either into the types in this package.
//
// # Sampled Values
//
// When every source for a required weather field fails, a fixed filler is used
// and [WeatherSnapshot.Sampled] is set so callers can tell it from real data.
package domain
